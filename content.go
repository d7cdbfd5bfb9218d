package micropub

import (
	"sort"
	"strings"
)

const commandPrefix = "mp-"

var attachmentKinds = map[string]bool{
	"photo": true,
	"video": true,
	"audio": true,
}

// derive classifies the normalized properties into content, commands,
// status, and attachments. Runs at most once per request; after a failure
// it leaves everything empty.
func (r *Request) derive() {
	if r.derived {
		return
	}
	r.normalize()
	r.derived = true

	r.content = map[string]interface{}{}
	r.commands = map[string]interface{}{}
	r.updates = map[string]interface{}{}
	r.attachments = map[string][]Attachment{}

	if r.err != nil {
		return
	}

	switch r.action {
	case ActionCreate:
		r.deriveCreate()
		if len(r.files) > 0 {
			r.saveUploads()
		}
	case ActionUpdate:
		r.deriveUpdate()
	}
}

// deriveCreate dispatches each property in a fixed priority order: command,
// attachment kind, post-status, html-wrapped value, single-element unwrap,
// then passthrough. Keys are visited sorted so the first error is always
// the same one.
func (r *Request) deriveCreate() {
	for _, key := range sortedKeys(r.properties) {
		values, ok := toList(r.properties[key])
		if !ok {
			r.fail(ErrInvalidRequest, key, "Values in properties must be arrays.")
			return
		}

		switch {
		case strings.HasPrefix(key, commandPrefix):
			if len(values) > 0 {
				r.commands[key] = values[0]
			} else {
				r.commands[key] = nil
			}

		case attachmentKinds[key]:
			r.attachments[key] = r.resolveAttachments(values)

		case key == "post-status":
			if len(values) > 0 {
				r.status = str(values[0])
			}

		default:
			if html, ok := htmlValue(values); ok {
				r.content[key] = html
				r.htmlFields = append(r.htmlFields, key)
			} else if len(values) == 1 {
				r.content[key] = values[0]
			} else {
				r.content[key] = values
			}
		}
	}

	sort.Strings(r.htmlFields)
}

// deriveUpdate validates the replace, add and delete operations. Content
// stays empty for updates; the operations are kept as submitted, except
// that single html-wrapped values are unwrapped.
func (r *Request) deriveUpdate() {
	for _, op := range []string{"replace", "add", "delete"} {
		raw, ok := r.properties[op]
		if !ok {
			continue
		}

		// delete may name whole properties rather than values
		if op == "delete" {
			if list, ok := toList(raw); ok {
				r.updates[op] = list
				continue
			}
		}

		fields, ok := raw.(map[string]interface{})
		if !ok {
			r.fail(ErrInvalidRequest, op, "Update operations must be objects.")
			return
		}

		for _, key := range sortedKeys(fields) {
			values, ok := toList(fields[key])
			if !ok {
				r.fail(ErrInvalidRequest, op+"."+key, "Values in update operations must be arrays.")
				return
			}

			if len(values) == 1 {
				if wrapped, ok := values[0].(map[string]interface{}); ok {
					if html, ok := wrapped["html"]; ok {
						fields[key] = html
						r.htmlFields = append(r.htmlFields, key)
					}
				}
			}
		}

		r.updates[op] = fields
	}

	sort.Strings(r.htmlFields)
}

// htmlValue returns the first value wrapped in an {html: ...} map, the Mf2
// convention for rich content.
func htmlValue(values []interface{}) (interface{}, bool) {
	for _, value := range values {
		if wrapped, ok := value.(map[string]interface{}); ok {
			if html, ok := wrapped["html"]; ok {
				return html, true
			}
		}
	}

	return nil, false
}
