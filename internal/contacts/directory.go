package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

// ErrUnavailable is returned by every call on a directory whose probe failed.
var ErrUnavailable = errors.New("contact directory unavailable")

// Capability is the result of probing the directory once per run.
type Capability struct {
	Available bool
	Reason    string
}

func Available() Capability { return Capability{Available: true} }

func Unavailable(reason string) Capability {
	return Capability{Reason: reason}
}

// Contact is what gets written for a new project customer.
type Contact struct {
	Name    string
	Phone   string
	Notes   string
	Address string
}

// Created describes a new contact. AddressErr is set when the contact was
// created but its structured address could not be stored.
type Created struct {
	ResourceName string
	AddressErr   error
}

// Client is the Google People API contact directory.
type Client struct {
	service    *people.Service
	capability *Capability
}

func NewClient(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Client, error) {
	log.Debug().Str("credentials_file", credentialsFile).Msg("Creating new People client")

	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(people.ContactsScope),
		}
	}
	srv, err := people.NewService(ctx, opts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create People service")
		return nil, fmt.Errorf("unable to retrieve People client: %v", err)
	}
	return &Client{service: srv}, nil
}

// Probe checks once whether the directory can be read and searched. The
// result is remembered for the rest of the run.
func (c *Client) Probe(ctx context.Context) Capability {
	if c.capability != nil {
		return *c.capability
	}
	capability := c.probe(ctx)
	c.capability = &capability
	if capability.Available {
		log.Debug().Msg("Contact directory available")
	} else {
		log.Warn().Str("reason", capability.Reason).Msg("Contact directory unavailable")
	}
	return capability
}

func (c *Client) probe(ctx context.Context) Capability {
	if c.service == nil {
		return Unavailable("People API 클라이언트 없음")
	}
	_, err := c.service.People.Connections.List("people/me").
		PageSize(1).
		PersonFields("names").
		Context(ctx).
		Do()
	if err != nil {
		return Unavailable(describe(err))
	}
	// searchContacts needs a warm-up request before results are served
	_, err = c.service.People.SearchContacts().
		Query("").
		ReadMask("names").
		Context(ctx).
		Do()
	if err != nil {
		return Unavailable(describe(err))
	}
	return Available()
}

func (c *Client) ready(ctx context.Context) error {
	if cp := c.Probe(ctx); !cp.Available {
		return fmt.Errorf("%w: %s", ErrUnavailable, cp.Reason)
	}
	return nil
}

// LookupByPhone reports whether a contact with the same normalized number
// exists.
func (c *Client) LookupByPhone(ctx context.Context, phone string) (bool, error) {
	if err := c.ready(ctx); err != nil {
		return false, err
	}
	want := NormalizePhone(phone)

	res, err := c.service.People.SearchContacts().
		Query(want).
		ReadMask("names,phoneNumbers").
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("search contacts: %w", err)
	}
	for _, r := range res.Results {
		if r.Person == nil {
			continue
		}
		for _, p := range r.Person.PhoneNumbers {
			if NormalizePhone(p.Value) == want || NormalizePhone(p.CanonicalForm) == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// Create adds a contact. The structured address is written in a second call
// whose failure is reported through Created.AddressErr only.
func (c *Client) Create(ctx context.Context, ct Contact) (Created, error) {
	if err := c.ready(ctx); err != nil {
		return Created{}, err
	}

	person := &people.Person{
		Names:        []*people.Name{{GivenName: ct.Name}},
		PhoneNumbers: []*people.PhoneNumber{{Value: ct.Phone, Type: "mobile"}},
	}
	if ct.Notes != "" {
		person.Biographies = []*people.Biography{{Value: ct.Notes, ContentType: "TEXT_PLAIN"}}
	}

	created, err := c.service.People.CreateContact(person).
		PersonFields("names,phoneNumbers").
		Context(ctx).
		Do()
	if err != nil {
		return Created{}, fmt.Errorf("create contact: %w", err)
	}
	out := Created{ResourceName: created.ResourceName}
	log.Info().Str("name", ct.Name).Str("phone", ct.Phone).Str("resource", created.ResourceName).Msg("Created contact")

	if strings.TrimSpace(ct.Address) == "" {
		return out, nil
	}
	update := &people.Person{
		Etag:      created.Etag,
		Addresses: []*people.Address{{FormattedValue: ct.Address, Type: "home"}},
	}
	_, err = c.service.People.UpdateContact(created.ResourceName, update).
		UpdatePersonFields("addresses").
		Context(ctx).
		Do()
	if err != nil {
		out.AddressErr = fmt.Errorf("set contact address: %w", err)
	}
	return out, nil
}

func describe(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Message != "" {
			return fmt.Sprintf("People API %d: %s", gerr.Code, gerr.Message)
		}
		return fmt.Sprintf("People API %d", gerr.Code)
	}
	return err.Error()
}
