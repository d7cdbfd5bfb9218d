package micropub

import (
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Action is what a micropub request wants done with a post.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Config carries the identity and storage settings a Request is processed
// against. It is read-only once handed to ParseRequest.
type Config struct {
	// Me is the canonical URL of the site tokens must be issued for.
	Me string
	// MePath, when set, is appended to Me for the authorization check.
	MePath string
	// TokenEndpoint overrides DefaultTokenEndpoint for remote verification.
	TokenEndpoint string
	// VerifyToken, when set, verifies tokens locally instead.
	VerifyToken VerifyFunc
	// UploadDir is where fetched and uploaded attachments are written.
	UploadDir string
	// MediaDir is the root already-hosted media URLs resolve under.
	MediaDir string
	// Client is used for outgoing requests, defaulting to a client with a
	// bounded timeout.
	Client *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return defaultClient
}

// Request is a micropub request normalized from either JSON or form syntax.
// The zero value is not usable; get one from ParseRequest.
type Request struct {
	Method string

	config Config

	body   map[string]interface{}
	isForm bool
	files  map[string][]*multipart.FileHeader

	auth *Token
	err  *Error

	normalized bool
	action     Action
	postType   string
	properties map[string]interface{}
	targetURL  string

	derived     bool
	content     map[string]interface{}
	commands    map[string]interface{}
	status      string
	htmlFields  []string
	updates     map[string]interface{}
	attachments map[string][]Attachment
}

// ParseRequest authenticates r and prepares it for normalization. The
// bearer token is always checked first: if it is missing, invalid, or
// issued for another site then no part of the body is processed.
func ParseRequest(r *http.Request, config Config) *Request {
	req := &Request{
		Method: r.Method,
		action: ActionCreate,
		config: config,
	}

	verifier := &Verifier{
		Me:         config.Me,
		MePath:     config.MePath,
		VerifyFunc: config.VerifyToken,
		Client:     config.Client,
	}
	if config.TokenEndpoint != "" {
		endpoint, err := url.Parse(config.TokenEndpoint)
		if err != nil {
			req.fail(ErrInternal, "token_endpoint", "The configured token endpoint is not a valid URL.")
			return req
		}
		verifier.TokenEndpoint = endpoint
	}

	auth, aerr := verifier.Verify(BearerToken(r))
	if aerr != nil {
		req.err = aerr
		return req
	}
	req.auth = auth

	if r.Method == "POST" {
		req.readBody(r)
	}

	return req
}

func (r *Request) readBody(req *http.Request) {
	mediatype, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))

	switch mediatype {
	case "application/json":
		var body map[string]interface{}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			r.fail(ErrInvalidRequest, "properties", "The request body could not be parsed as either JSON or form syntax.")
			return
		}
		r.body = body

	case "application/x-www-form-urlencoded", "multipart/form-data":
		if mediatype == "multipart/form-data" {
			if err := req.ParseMultipartForm(32 << 20); err != nil {
				r.fail(ErrInvalidRequest, "properties", "The request body could not be parsed as either JSON or form syntax.")
				return
			}
			r.files = req.MultipartForm.File
		} else if err := req.ParseForm(); err != nil {
			r.fail(ErrInvalidRequest, "properties", "The request body could not be parsed as either JSON or form syntax.")
			return
		}

		r.isForm = true
		r.body = formBody(req.PostForm)
	}
}

// formBody reshapes decoded form fields into the generic body map. The []
// suffix marks a field explicitly submitted as a list, so 'category[]'
// becomes a 'category' sequence even with one value.
func formBody(form url.Values) map[string]interface{} {
	body := make(map[string]interface{}, len(form))

	for key, values := range form {
		if len(values) == 0 {
			continue
		}

		isList := strings.HasSuffix(key, "[]")
		if isList {
			key = strings.TrimSuffix(key, "[]")
		}

		if isList || len(values) > 1 {
			list := make([]interface{}, len(values))
			for i, v := range values {
				list[i] = v
			}
			body[key] = list
		} else {
			body[key] = values[0]
		}
	}

	return body
}

func (r *Request) fail(kind ErrorKind, property, description string) {
	if r.err != nil {
		return
	}
	r.err = &Error{Kind: kind, Property: property, Description: description}
}

// Err returns the first error hit while processing the request, forcing any
// remaining derivation so nothing is reported late.
func (r *Request) Err() *Error {
	r.derive()
	return r.err
}

// Auth returns the verified token, or nil if verification failed.
func (r *Request) Auth() *Token {
	return r.auth
}

// Action returns what the request wants done, defaulting to create.
func (r *Request) Action() Action {
	r.normalize()
	return r.action
}

// PostType returns the post vocabulary, e.g. "entry", with the "h-" prefix
// stripped.
func (r *Request) PostType() string {
	r.normalize()
	return r.postType
}

// URL returns the target of an update or delete, and is empty otherwise.
func (r *Request) URL() string {
	r.normalize()
	return r.targetURL
}

// Properties returns the full Mf2 properties map, commands included.
func (r *Request) Properties() map[string]interface{} {
	r.normalize()
	return r.properties
}

// Content returns the publishable fields of a create request: no commands,
// no attachments, no post-status. Single values are unwrapped.
func (r *Request) Content() map[string]interface{} {
	r.derive()
	return r.content
}

// Commands returns each mp- command mapped to its first value.
func (r *Request) Commands() map[string]interface{} {
	r.derive()
	return r.commands
}

// Status returns the requested post-status, e.g. "draft", if one was sent.
func (r *Request) Status() string {
	r.derive()
	return r.status
}

// HTMLFields lists the fields whose values were submitted as HTML.
func (r *Request) HTMLFields() []string {
	r.derive()
	return r.htmlFields
}

// Updates returns the replace, add and delete operations of an update
// request.
func (r *Request) Updates() map[string]interface{} {
	r.derive()
	return r.updates
}

// Attachments returns the resolved attachments by kind.
func (r *Request) Attachments() map[string][]Attachment {
	r.derive()
	return r.attachments
}

// Mf2 exports the request in the Mf2 post shape.
func (r *Request) Mf2() map[string]interface{} {
	r.normalize()
	return map[string]interface{}{
		"type":       "h-" + r.postType,
		"properties": r.properties,
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
