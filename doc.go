/*
Package micropub normalizes Micropub requests.

Micropub clients send posts in one of two syntaxes: JSON, shaped like a
Microformats2 post, or url-encoded/multipart form data. This package
verifies the request's IndieAuth bearer token, translates either syntax
into the same canonical representation, and resolves any referenced media,
leaving the endpoint to decide what to publish.

Start by parsing the incoming request against the site's configuration.

    func Handler(w http.ResponseWriter, r *http.Request) {
      req := micropub.ParseRequest(r, micropub.Config{
        Me:        "https://example.com",
        UploadDir: "/tmp/uploads",
        MediaDir:  "/srv/www",
      })

      if err := req.Err(); err != nil {
        err.WriteResponse(w, r)
        return
      }

      // ...
    }

The bearer token is checked before anything else: it must verify against
the token endpoint (or a locally registered VerifyToken func) and must
have been issued for Me. Only then is the body looked at.

A form request like

    h=entry&content=Hello+World&category[]=foo&category[]=bar

and the JSON request

    {"type": ["h-entry"],
     "properties": {"content": ["Hello World"], "category": ["foo", "bar"]}}

both come out the same way:

    req.Action()  // micropub.ActionCreate
    req.PostType() // "entry"
    req.Content() // map[content:Hello World category:[foo bar]]

Commands like mp-slug, the post-status field, and photo/video/audio
references are pulled out of the content and exposed through Commands,
Status and Attachments; updates and deletes expose Updates and URL
instead. Media referenced by URL is downloaded into UploadDir, except
URLs on our own origin, which resolve directly under MediaDir.

To verify tokens against the site's own endpoint rather than the default
of tokens.indieauth.com, discover it first:

    endpoint, err := micropub.FindTokenEndpoint(nil, "https://example.com")

Further Reading

Spec: https://micropub.spec.indieweb.org/
*/
package micropub
