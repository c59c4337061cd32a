package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

const testEndpoint = "https://people.test/"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	srv, err := people.NewService(context.Background(),
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(testEndpoint),
	)
	require.NoError(t, err)
	return &Client{service: srv}
}

func registerProbeOK() {
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"v1/people/me/connections",
		httpmock.NewStringResponder(http.StatusOK, `{"connections":[]}`))
}

func TestProbeUnavailable(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"v1/people/me/connections",
		httpmock.NewStringResponder(http.StatusForbidden,
			`{"error":{"code":403,"message":"People API has not been used in project"}}`))

	cp := c.Probe(context.Background())
	assert.False(t, cp.Available)
	assert.Contains(t, cp.Reason, "403")

	// the probe result is remembered and every call short-circuits
	_, err := c.LookupByPhone(context.Background(), "010-1234-5678")
	assert.True(t, errors.Is(err, ErrUnavailable))
	_, err = c.Create(context.Background(), Contact{Name: "홍길동"})
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestLookupByPhone(t *testing.T) {
	c := newTestClient(t)
	registerProbeOK()
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"v1/people:searchContacts",
		func(req *http.Request) (*http.Response, error) {
			switch req.URL.Query().Get("query") {
			case "010-1234-5678":
				return httpmock.NewStringResponder(http.StatusOK, `{"results":[
					{"person":{"phoneNumbers":[{"value":"010 9999 0000"}]}},
					{"person":{"phoneNumbers":[{"value":"(010)1234-5678"}]}}
				]}`)(req)
			default:
				return httpmock.NewStringResponder(http.StatusOK, `{}`)(req)
			}
		})

	found, err := c.LookupByPhone(context.Background(), "010 1234 5678")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = c.LookupByPhone(context.Background(), "010-5555-6666")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateReportsAddressFailureAsWarning(t *testing.T) {
	c := newTestClient(t)
	registerProbeOK()
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"v1/people:searchContacts",
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	var sent people.Person
	httpmock.RegisterResponder(http.MethodPost, testEndpoint+"v1/people:createContact",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&sent); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponder(http.StatusOK,
				`{"resourceName":"people/c1","etag":"e1"}`)(req)
		})
	httpmock.RegisterResponder(http.MethodPatch, testEndpoint+"v1/people/c1:updateContact",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":{"code":400,"message":"bad address"}}`))

	created, err := c.Create(context.Background(), Contact{
		Name:    "멱살반 홍길동님",
		Phone:   "010-1234-5678",
		Notes:   "주소: 역삼동 1\n지도: https://map",
		Address: "역삼동 1 101호",
	})
	require.NoError(t, err)
	assert.Equal(t, "people/c1", created.ResourceName)
	assert.Error(t, created.AddressErr)

	require.Len(t, sent.Names, 1)
	assert.Equal(t, "멱살반 홍길동님", sent.Names[0].GivenName)
	require.Len(t, sent.Biographies, 1)
	assert.Equal(t, "주소: 역삼동 1\n지도: https://map", sent.Biographies[0].Value)
}

func TestCreateWithoutAddressSkipsUpdate(t *testing.T) {
	c := newTestClient(t)
	registerProbeOK()
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"v1/people:searchContacts",
		httpmock.NewStringResponder(http.StatusOK, `{}`))
	httpmock.RegisterResponder(http.MethodPost, testEndpoint+"v1/people:createContact",
		httpmock.NewStringResponder(http.StatusOK, `{"resourceName":"people/c2"}`))

	created, err := c.Create(context.Background(), Contact{Name: "n", Phone: "010-1111-2222"})
	require.NoError(t, err)
	assert.NoError(t, created.AddressErr)
	assert.Equal(t, 0, httpmock.GetCallCountInfo()["PATCH "+testEndpoint+"v1/people/c2:updateContact"])
}
