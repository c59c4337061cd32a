package geocode

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
)

const testBaseURL = "https://dapi.kakao.com/v2/local/search/address.json"

func TestSearchReturnsFirstDocument(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL,
		func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("Authorization"); got != "KakaoAK secret" {
				t.Errorf("Expected KakaoAK authorization header, got %q", got)
			}
			if got := req.URL.Query().Get("query"); got != "서울 강남구 역삼동 719-8" {
				t.Errorf("Expected query to be the base address, got %q", got)
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"documents": []map[string]interface{}{
					{
						"address_name": "서울 강남구 역삼동 719-8",
						"address":      map[string]string{"address_name": "서울 강남구 역삼동 719-8"},
						"road_address": map[string]string{"address_name": "서울 강남구 논현로 100"},
					},
					{"address_name": "ignored"},
				},
			})
		})

	c := NewClient(" secret ", testBaseURL)
	res, err := c.Search(context.Background(), "서울 강남구 역삼동 719-8")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.JibunAddress != "서울 강남구 역삼동 719-8" || res.RoadAddress != "서울 강남구 논현로 100" {
		t.Errorf("Unexpected result %+v", res)
	}

	// second identical query is served from memory
	if _, err := c.Search(context.Background(), "서울 강남구 역삼동 719-8"); err != nil {
		t.Fatalf("Expected cached result, got %v", err)
	}
	if got := c.GetAPICallCount(); got != 1 {
		t.Errorf("Expected 1 API call, got %d", got)
	}
	if got := httpmock.GetTotalCallCount(); got != 1 {
		t.Errorf("Expected 1 HTTP call, got %d", got)
	}
}

func TestSearchNoDocuments(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL,
		httpmock.NewStringResponder(http.StatusOK, `{"documents":[]}`))

	_, err := NewClient("k", testBaseURL).Search(context.Background(), "없는 주소 1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSearchNon200(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"errorType":"AccessDeniedError"}`))

	_, err := NewClient("bad", testBaseURL).Search(context.Background(), "서울 1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", apiErr.StatusCode)
	}
}

func TestSearchTransportError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL,
		httpmock.NewErrorResponder(errors.New("connection reset")))

	_, err := NewClient("k", testBaseURL).Search(context.Background(), "서울 1")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("Expected transport error, not APIError")
	}
}

func TestHasKey(t *testing.T) {
	if NewClient("   ", testBaseURL).HasKey() {
		t.Error("Expected blank key to be missing")
	}
	if !NewClient("k", testBaseURL).HasKey() {
		t.Error("Expected key to be present")
	}
}
