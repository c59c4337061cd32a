package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// SheetNames are the tab titles inside the managed spreadsheet.
type SheetNames struct {
	Main       string
	Calendar   string
	ContactLog string
	DriveLog   string
	DriveRun   string
	DB         string
	Xref       string
}

// ScanConfig controls block discovery and early termination.
type ScanConfig struct {
	StartRow           int
	BlockHeight        int // 0 means auto-detect
	DefaultBlockHeight int
	DetectWindow       int
	MinDelta           int
	MaxDelta           int
	StopAfterEmpty     int
}

// NameValidation decides which project-name values denote real projects.
type NameValidation struct {
	Prefixes      []string
	Suffix        string
	RequireSuffix bool
	AllowAny      bool
}

type ContactOptions struct {
	SkipIfNoPhone        bool
	SkipIfLogged         bool
	LogSkipReasons       bool
	IgnoreNameValidation bool
}

type DriveOptions struct {
	CacheTTL        time.Duration
	CacheBackend    string // sheet or redis
	RedisURL        string
	HasFilesColor   string
	ClearColor      string
	ExcludeKeywords []string
	Depth           int
}

type KakaoConfig struct {
	APIKey         string
	BaseURL        string
	MapURLTemplate string
}

type FolderOptions struct {
	TemplateFileID string
	StampCell      string
}

// TaskColumn pairs a label column with a date column for the weekly view.
type TaskColumn struct {
	LabelCol int
	DateCol  int
	Prefix   string
}

type NotifyConfig struct {
	Enabled  bool
	BaseURL  string
	Topic    string
	Priority string
}

// Config is built once at startup and passed to every component.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	Sheets          SheetNames
	Layout          Layout
	Scan            ScanConfig
	Names           NameValidation
	Contacts        ContactOptions
	Drive           DriveOptions
	Kakao           KakaoConfig
	Folders         FolderOptions
	DBSQLitePath    string
	CalendarTasks   []TaskColumn
	Notify          NotifyConfig
	PushgatewayURL  string
	Resilience      ResilienceConfig
}

// Default returns the configuration used by the original sheet layout.
func Default() Config {
	return Config{
		CredentialsFile: "credentials.json",
		Sheets: SheetNames{
			Main:       "통합관리시트",
			Calendar:   "홈스타일_주간일정",
			ContactLog: "연락처_log",
			DriveLog:   "드라이브_check_log",
			DriveRun:   "드라이브_run_log",
		},
		Layout: DefaultLayout(),
		Scan: ScanConfig{
			StartRow:           4,
			BlockHeight:        9,
			DefaultBlockHeight: 9,
			DetectWindow:       500,
			MinDelta:           4,
			MaxDelta:           30,
			StopAfterEmpty:     3,
		},
		Names: NameValidation{Suffix: "님"},
		Contacts: ContactOptions{
			SkipIfNoPhone:  true,
			SkipIfLogged:   true,
			LogSkipReasons: true,
		},
		Drive: DriveOptions{
			CacheTTL:        6 * time.Hour,
			CacheBackend:    "sheet",
			HasFilesColor:   "#ffff00",
			ClearColor:      "#ffffff",
			ExcludeKeywords: []string{"물품리스트", "item list"},
			Depth:           2,
		},
		Kakao: KakaoConfig{
			BaseURL:        "https://dapi.kakao.com/v2/local/search/address.json",
			MapURLTemplate: "https://map.kakao.com/?q=%s",
		},
		Folders: FolderOptions{StampCell: "B2"},
		CalendarTasks: []TaskColumn{
			{LabelCol: 7, DateCol: 8, Prefix: ""},
			{LabelCol: 13, DateCol: 14, Prefix: "[시공] "},
		},
		Notify: NotifyConfig{
			BaseURL: "https://ntfy.sh",
			Topic:   "homestyle-sync",
		},
		Resilience: DefaultResilienceConfig,
	}
}

// Load builds a Config from the environment on top of Default.
func Load() (Config, error) {
	cfg := Default()

	cfg.SpreadsheetID = getenv("SPREADSHEET_ID", "")
	cfg.CredentialsFile = getenv("GOOGLE_CREDENTIALS_FILE", cfg.CredentialsFile)

	cfg.Sheets.Main = getenv("MAIN_SHEET", cfg.Sheets.Main)
	cfg.Sheets.Calendar = getenv("CALENDAR_SHEET", cfg.Sheets.Calendar)
	cfg.Sheets.ContactLog = getenv("CONTACT_LOG_SHEET", cfg.Sheets.ContactLog)
	cfg.Sheets.DriveLog = getenv("DRIVE_LOG_SHEET", cfg.Sheets.DriveLog)
	cfg.Sheets.DriveRun = getenv("DRIVE_RUN_LOG_SHEET", cfg.Sheets.DriveRun)
	cfg.Sheets.DB = getenv("DB_SHEET", "")
	cfg.Sheets.Xref = getenv("XREF_SHEET", "")

	layout, err := LoadLayout(getenv("LAYOUT_FILE", ""))
	if err != nil {
		return Config{}, err
	}
	cfg.Layout = layout

	if cfg.Scan.StartRow, err = getenvInt("START_ROW", cfg.Scan.StartRow); err != nil {
		return Config{}, err
	}
	if cfg.Scan.BlockHeight, err = getenvInt("BLOCK_HEIGHT", cfg.Scan.BlockHeight); err != nil {
		return Config{}, err
	}
	if cfg.Scan.StopAfterEmpty, err = getenvInt("STOP_AFTER_EMPTY_BLOCKS", cfg.Scan.StopAfterEmpty); err != nil {
		return Config{}, err
	}

	cfg.Names.Prefixes = getenvList("NAME_PREFIXES")
	cfg.Names.Suffix = getenv("NAME_SUFFIX", cfg.Names.Suffix)
	cfg.Names.RequireSuffix = getenvBool("NAME_REQUIRE_SUFFIX", cfg.Names.RequireSuffix)
	cfg.Names.AllowAny = getenvBool("NAME_ALLOW_ANY", cfg.Names.AllowAny)

	cfg.Contacts.SkipIfNoPhone = getenvBool("CONTACT_SKIP_IF_NO_PHONE", cfg.Contacts.SkipIfNoPhone)
	cfg.Contacts.SkipIfLogged = getenvBool("CONTACT_SKIP_IF_LOGGED", cfg.Contacts.SkipIfLogged)
	cfg.Contacts.LogSkipReasons = getenvBool("CONTACT_LOG_SKIP_REASONS", cfg.Contacts.LogSkipReasons)
	cfg.Contacts.IgnoreNameValidation = getenvBool("CONTACT_IGNORE_NAME_VALIDATION", cfg.Contacts.IgnoreNameValidation)

	hours, err := getenvInt("DRIVE_CACHE_HOURS", int(cfg.Drive.CacheTTL/time.Hour))
	if err != nil {
		return Config{}, err
	}
	cfg.Drive.CacheTTL = time.Duration(hours) * time.Hour
	cfg.Drive.CacheBackend = getenv("DRIVE_CACHE_BACKEND", cfg.Drive.CacheBackend)
	cfg.Drive.RedisURL = getenv("REDIS_URL", "")

	cfg.Kakao.APIKey = strings.TrimSpace(getenv("KAKAO_API_KEY", ""))
	cfg.Kakao.BaseURL = getenv("KAKAO_BASE_URL", cfg.Kakao.BaseURL)

	cfg.Folders.TemplateFileID = getenv("TEMPLATE_FILE_ID", "")
	cfg.Folders.StampCell = getenv("TEMPLATE_STAMP_CELL", cfg.Folders.StampCell)

	cfg.DBSQLitePath = getenv("DB_SQLITE_PATH", "")
	cfg.PushgatewayURL = getenv("PUSHGATEWAY_URL", "")

	cfg.Notify.Enabled = getenvBool("NTFY_ENABLED", false)
	cfg.Notify.BaseURL = getenv("NTFY_URL", cfg.Notify.BaseURL)
	cfg.Notify.Topic = getenv("NTFY_TOPIC", cfg.Notify.Topic)
	cfg.Notify.Priority = getenv("NTFY_PRIORITY", "")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c Config) Validate() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet id cannot be empty")
	}
	if c.Sheets.Main == "" {
		return fmt.Errorf("main sheet name cannot be empty")
	}
	if c.Scan.StartRow < 1 {
		return fmt.Errorf("start row must be positive")
	}
	if c.Scan.BlockHeight < 0 {
		return fmt.Errorf("block height cannot be negative")
	}
	if c.Scan.DefaultBlockHeight <= 0 {
		return fmt.Errorf("default block height must be positive")
	}
	if c.Scan.StopAfterEmpty <= 0 {
		return fmt.Errorf("stop-after-empty threshold must be positive")
	}
	if c.Scan.MinDelta <= 0 || c.Scan.MaxDelta < c.Scan.MinDelta {
		return fmt.Errorf("block height delta range [%d,%d] is invalid", c.Scan.MinDelta, c.Scan.MaxDelta)
	}

	maxRow := c.Scan.BlockHeight
	if maxRow == 0 {
		maxRow = c.Scan.MaxDelta
	}
	if err := c.Layout.Validate(maxRow); err != nil {
		return err
	}

	if c.Drive.CacheTTL < 0 {
		return fmt.Errorf("drive cache ttl cannot be negative")
	}
	switch c.Drive.CacheBackend {
	case "sheet":
	case "redis":
		if c.Drive.RedisURL == "" {
			return fmt.Errorf("redis drive cache requires REDIS_URL")
		}
	default:
		return fmt.Errorf("drive cache backend must be sheet or redis")
	}

	if c.Kakao.BaseURL != "" {
		parsed, err := url.Parse(c.Kakao.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid kakao base URL: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("kakao base URL must include a host")
		}
	}
	if !strings.Contains(c.Kakao.MapURLTemplate, "%s") {
		return fmt.Errorf("map URL template must contain %%s")
	}

	return nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getenvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
