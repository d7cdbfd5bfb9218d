package micropub

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTokenEndpoint is used to verify bearer tokens when no endpoint has
// been configured and no VerifyFunc is registered.
const DefaultTokenEndpoint = "https://tokens.indieauth.com/token"

var defaultClient = &http.Client{Timeout: 10 * time.Second}

// Token is the result of verifying a bearer token: the identity it was
// issued for and the scopes it grants.
type Token struct {
	Me       string
	Issuer   string
	ClientID string
	IssuedAt int64
	Scopes   []string
	Raw      string
}

// HasScope returns true if the token was issued with the scope.
func (t Token) HasScope(scope string) bool {
	for _, candidate := range t.Scopes {
		if candidate == scope {
			return true
		}
	}

	return false
}

// TokenData is the descriptor a token endpoint, or a VerifyFunc standing in
// for one, returns for a bearer token.
type TokenData struct {
	Me               string `json:"me"`
	Issuer           string `json:"iss"`
	ClientID         string `json:"client_id"`
	IssuedAt         int64  `json:"iat"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// VerifyFunc verifies a bearer token locally, taking the place of the
// remote token endpoint.
type VerifyFunc func(token string) (TokenData, error)

// Verifier checks bearer tokens and authorizes them against the identity of
// the site, Me, optionally extended with a sub-path.
type Verifier struct {
	Me            string
	MePath        string
	TokenEndpoint *url.URL
	VerifyFunc    VerifyFunc
	Client        *http.Client
}

// Verify checks the bearer token, either with the registered VerifyFunc or
// by querying the token endpoint, and authorizes the identity it was issued
// for against Me.
func (v *Verifier) Verify(token string) (*Token, *Error) {
	if token == "" {
		return nil, &Error{
			Kind:        ErrUnauthorized,
			Property:    "token",
			Description: "No access token was provided.",
		}
	}

	var (
		data TokenData
		err  error
	)
	if v.VerifyFunc != nil {
		data, err = v.VerifyFunc(token)
	} else {
		data, err = v.verifyRemotely(token)
	}
	if err != nil {
		return nil, &Error{
			Kind:        ErrInternal,
			Property:    "token",
			Description: "Could not verify the access token: " + err.Error(),
		}
	}

	if data.Error != "" {
		return nil, &Error{
			Kind:        ErrInvalidRequest,
			Property:    data.Error,
			Description: data.ErrorDescription,
		}
	}

	if data.Me != v.expectedMe() {
		return nil, &Error{
			Kind:        ErrForbidden,
			Property:    data.Me,
			Description: "Not authorized for this site.",
		}
	}

	return &Token{
		Me:       data.Me,
		Issuer:   data.Issuer,
		ClientID: data.ClientID,
		IssuedAt: data.IssuedAt,
		Scopes:   strings.Fields(data.Scope),
		Raw:      token,
	}, nil
}

func (v *Verifier) expectedMe() string {
	if v.MePath == "" {
		return v.Me
	}

	return strings.TrimSuffix(v.Me, "/") + "/" + strings.TrimPrefix(v.MePath, "/")
}

func (v *Verifier) verifyRemotely(token string) (data TokenData, err error) {
	endpoint := DefaultTokenEndpoint
	if v.TokenEndpoint != nil {
		endpoint = v.TokenEndpoint.String()
	}

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	client := defaultClient
	if v.Client != nil {
		client = v.Client
	}

	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	err = json.NewDecoder(resp.Body).Decode(&data)
	return
}

// BearerToken extracts the bearer token from a request, preferring the
// Authorization header over an access_token form field.
func BearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return r.PostFormValue("access_token")
}
