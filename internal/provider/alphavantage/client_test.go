package alphavantage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	alphavantage "marketfeed/internal/provider/alphavantage"
)

func jsonResponse(t *testing.T, v any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(v))
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(buffer)}
}

func TestQuery_SendsAPIKeyAndParams(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			require.Equal(t, "test-key", q.Get("apikey"))
			require.Equal(t, "GLOBAL_QUOTE", q.Get("function"))
			require.Equal(t, "AAPL", q.Get("symbol"))
			return jsonResponse(t, map[string]any{}), nil
		}).
		Times(1)

	client := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	_, err := client.Query(context.Background(), url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {"AAPL"},
	})
	require.NoError(t, err)
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	baseURL := "http://localhost:8080"

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())
			return jsonResponse(t, map[string]any{}), nil
		}).
		Times(1)

	client := alphavantage.NewClient("test", alphavantage.WithHTTPClient(httpClient), alphavantage.WithBaseURL(baseURL))
	_, err := client.Query(context.Background(), url.Values{"function": {"GLOBAL_QUOTE"}})
	require.NoError(t, err)
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "marketfeed/1.0", req.Header.Get("User-Agent"))
			return jsonResponse(t, map[string]any{}), nil
		}).
		Times(1)

	client := alphavantage.NewClient("test",
		alphavantage.WithHTTPClient(httpClient),
		alphavantage.WithHeader(http.Header{"User-Agent": []string{"marketfeed/1.0"}}),
	)
	_, err := client.Query(context.Background(), url.Values{"function": {"GLOBAL_QUOTE"}})
	require.NoError(t, err)
}

func TestQuery_NoteMeansThrottled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(t, map[string]any{
				"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute",
			}), nil
		}).
		Times(1)

	client := alphavantage.NewClient("test", alphavantage.WithHTTPClient(httpClient))
	_, err := client.Query(context.Background(), url.Values{"function": {"GLOBAL_QUOTE"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api limit")
}

func TestQuery_InformationMeansThrottled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(t, map[string]any{"Information": "premium endpoint"}), nil
		}).
		Times(1)

	client := alphavantage.NewClient("test", alphavantage.WithHTTPClient(httpClient))
	_, err := client.Query(context.Background(), url.Values{"function": {"GLOBAL_QUOTE"}})
	require.Error(t, err)
}

func TestQuery_BadStatusIsError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader("nope")),
			}, nil
		}).
		Times(1)

	client := alphavantage.NewClient("test", alphavantage.WithHTTPClient(httpClient))
	_, err := client.Query(context.Background(), url.Values{"function": {"GLOBAL_QUOTE"}})
	require.Error(t, err)
}
