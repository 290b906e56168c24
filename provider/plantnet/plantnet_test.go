package plantnet

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdant-labs/florascan"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	c, err := New(Config{APIKey: "pn-key", HTTPClient: hc})
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestIdentifyParsesResults(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, `=~^https://my-api\.plantnet\.org/v2/identify/all`,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "pn-key", req.URL.Query().Get("api-key"))

			require.NoError(t, req.ParseMultipartForm(1<<20))
			assert.Equal(t, "auto", req.FormValue("organs"))
			f, _, err := req.FormFile("images")
			require.NoError(t, err)
			raw, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, []byte("jpeg-bytes"), raw)

			return httpmock.NewStringResponse(http.StatusOK, `{
				"results": [
					{"score": 0.81, "species": {"scientificNameWithoutAuthor": "Monstera deliciosa",
					                            "commonNames": ["Swiss cheese plant"]}},
					{"score": 0.05, "species": {"scientificNameWithoutAuthor": "Epipremnum aureum"}}
				]
			}`), nil
		})

	res, err := c.Identify(context.Background(), []byte("jpeg-bytes"), florascan.IdentifyOptions{})
	require.NoError(t, err)

	assert.Equal(t, florascan.ProviderSecondary, res.Provider)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "Monstera deliciosa", res.Candidates[0].Name)
	assert.Equal(t, "Swiss cheese plant", res.Candidates[0].CommonName)
	assert.InDelta(t, 0.81, res.Candidates[0].Score, 1e-9)
	assert.Empty(t, res.Candidates[1].CommonName)
	assert.Nil(t, res.Disease)
	assert.Nil(t, res.Care)
}

func TestIdentifyNoMatchIsEmptyResult(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, `=~^https://my-api\.plantnet\.org/v2/identify/all`,
		httpmock.NewStringResponder(http.StatusNotFound, `{"message":"Species not found"}`))

	res, err := c.Identify(context.Background(), []byte("img"), florascan.IdentifyOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.True(t, res.Present())
}

func TestIdentifyNon2xxIsError(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, `=~^https://my-api\.plantnet\.org/v2/identify/all`,
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"bad key"}`))

	_, err := c.Identify(context.Background(), []byte("img"), florascan.IdentifyOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCustomProjectInPath(t *testing.T) {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	c, err := New(Config{APIKey: "pn-key", Project: "weurope", HTTPClient: hc})
	require.NoError(t, err)

	httpmock.RegisterResponder(http.MethodPost, `=~^https://my-api\.plantnet\.org/v2/identify/weurope`,
		httpmock.NewStringResponder(http.StatusOK, `{"results": []}`))

	_, err = c.Identify(context.Background(), []byte("img"), florascan.IdentifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
