package micropub

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hawx.me/code/assert"
)

func TestFindTokenEndpointInLinkHeader(t *testing.T) {
	assert := assert.New(t)

	me := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://tokens.example.com/token>; rel="token_endpoint"`)
	}))
	defer me.Close()

	endpoint, err := FindTokenEndpoint(nil, me.URL)

	assert.Nil(err)
	assert.Equal("https://tokens.example.com/token", endpoint.String())
}

func TestFindTokenEndpointInHTML(t *testing.T) {
	assert := assert.New(t)

	me := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
      <link rel="authorization_endpoint" href="/auth"/>
      <link rel="token_endpoint" href="/token"/>
    </head></html>`)
	}))
	defer me.Close()

	endpoint, err := FindTokenEndpoint(nil, me.URL)

	assert.Nil(err)
	assert.Equal(me.URL+"/token", endpoint.String())
}

func TestFindTokenEndpointMissing(t *testing.T) {
	assert := assert.New(t)

	me := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head></head><body>nothing here</body></html>`)
	}))
	defer me.Close()

	_, err := FindTokenEndpoint(nil, me.URL)

	assert.Equal(errNoTokenEndpoint, err)
}

func TestFindTokenEndpointBadResponse(t *testing.T) {
	assert := assert.New(t)

	me := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer me.Close()

	_, err := FindTokenEndpoint(nil, me.URL)

	assert.NotNil(err)
}
