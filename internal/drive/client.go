package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homestyle_sync/internal/config"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	listFields     = "nextPageToken, files(id, name, mimeType)"
	folderCacheMax = 512
)

// Client wraps the Drive API with the exact-name lookups used for project
// folders.
type Client struct {
	service  *gdrive.Service
	folders  *lru.Cache[string, string]
	depth    int
	excluded []string
}

func NewClient(ctx context.Context, credentialsFile string, opts config.DriveOptions, clientOpts ...option.ClientOption) (*Client, error) {
	log.Debug().Str("credentials_file", credentialsFile).Msg("Creating new Drive client")

	if len(clientOpts) == 0 {
		clientOpts = []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
	}
	srv, err := gdrive.NewService(ctx, clientOpts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Drive service")
		return nil, fmt.Errorf("unable to retrieve Drive client: %v", err)
	}
	return NewClientWithService(srv, opts)
}

func NewClientWithService(srv *gdrive.Service, opts config.DriveOptions) (*Client, error) {
	folders, err := lru.New[string, string](folderCacheMax)
	if err != nil {
		return nil, fmt.Errorf("create folder cache: %w", err)
	}
	depth := opts.Depth
	if depth < 0 {
		depth = 0
	}
	excluded := make([]string, 0, len(opts.ExcludeKeywords))
	for _, k := range opts.ExcludeKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			excluded = append(excluded, k)
		}
	}
	return &Client{service: srv, folders: folders, depth: depth, excluded: excluded}, nil
}

// ParentFolderID returns the first parent of a file, usually the folder
// holding the spreadsheet.
func (c *Client) ParentFolderID(ctx context.Context, fileID string) (string, error) {
	f, err := c.service.Files.Get(fileID).
		Fields("id, parents").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("get file %s: %w", fileID, err)
	}
	if len(f.Parents) == 0 {
		return "", fmt.Errorf("file %s has no parent folder", fileID)
	}
	return f.Parents[0], nil
}

// FindOrCreateFolder reuses the folder named exactly name inside parentID,
// creating it when missing.
func (c *Client) FindOrCreateFolder(ctx context.Context, parentID, name string) (string, error) {
	key := parentID + "/" + name
	if id, ok := c.folders.Get(key); ok {
		return id, nil
	}

	id, found, err := c.findChild(ctx, parentID, name, true)
	if err != nil {
		return "", err
	}
	if !found {
		f, err := c.service.Files.Create(&gdrive.File{
			Name:     name,
			MimeType: folderMimeType,
			Parents:  []string{parentID},
		}).
			Fields("id").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("create folder %q: %w", name, err)
		}
		id = f.Id
		log.Info().Str("parent", parentID).Str("name", name).Str("id", id).Msg("Created folder")
	}

	c.folders.Add(key, id)
	return id, nil
}

// FindFile looks up a non-folder file by exact name inside parentID.
func (c *Client) FindFile(ctx context.Context, parentID, name string) (string, bool, error) {
	return c.findChild(ctx, parentID, name, false)
}

// CopyFile copies srcID into parentID under name and returns the new id.
func (c *Client) CopyFile(ctx context.Context, srcID, parentID, name string) (string, error) {
	f, err := c.service.Files.Copy(srcID, &gdrive.File{
		Name:    name,
		Parents: []string{parentID},
	}).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("copy file %s: %w", srcID, err)
	}
	log.Info().Str("source", srcID).Str("name", name).Str("id", f.Id).Msg("Copied template file")
	return f.Id, nil
}

// HasRealFiles reports whether folderID or any sub-folder down to the
// configured depth holds a file whose name has no excluded keyword.
func (c *Client) HasRealFiles(ctx context.Context, folderID string) (bool, error) {
	return c.hasRealFiles(ctx, folderID, c.depth)
}

func (c *Client) hasRealFiles(ctx context.Context, folderID string, depth int) (bool, error) {
	var subfolders []string
	found := false

	q := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))
	err := c.service.Files.List().
		Q(q).
		Fields(listFields).
		PageSize(200).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *gdrive.FileList) error {
			for _, f := range page.Files {
				if f.MimeType == folderMimeType {
					subfolders = append(subfolders, f.Id)
					continue
				}
				if !c.isExcluded(f.Name) {
					found = true
					return errStopPaging
				}
			}
			return nil
		})
	if err != nil && !errors.Is(err, errStopPaging) {
		return false, fmt.Errorf("list folder %s: %w", folderID, err)
	}
	if found {
		return true, nil
	}

	if depth <= 0 {
		return false, nil
	}
	for _, id := range subfolders {
		ok, err := c.hasRealFiles(ctx, id, depth-1)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) isExcluded(name string) bool {
	n := strings.ToLower(name)
	for _, k := range c.excluded {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}

func (c *Client) findChild(ctx context.Context, parentID, name string, folder bool) (string, bool, error) {
	q := fmt.Sprintf("'%s' in parents and name = '%s' and trashed=false", escapeQuery(parentID), escapeQuery(name))
	if folder {
		q += " and mimeType = '" + folderMimeType + "'"
	} else {
		q += " and mimeType != '" + folderMimeType + "'"
	}

	res, err := c.service.Files.List().
		Q(q).
		Fields(listFields).
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", false, fmt.Errorf("search %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return "", false, nil
	}
	return res.Files[0].Id, true, nil
}

var errStopPaging = errors.New("stop paging")

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
