package micropub

import (
	"net/url"
	"strings"
)

// normalize translates the raw body into the canonical Mf2 shape: a post
// type, an action, and a properties map whose values are sequences. Runs at
// most once per request.
func (r *Request) normalize() {
	if r.normalized {
		return
	}
	r.normalized = true
	r.properties = map[string]interface{}{}

	if r.err != nil || r.Method != "POST" {
		return
	}

	body := r.body
	if r.isForm {
		if _, ok := body["h"]; ok {
			body = formToMf2(body)
		}
	}

	if rawType, ok := body["type"]; ok {
		types, ok := toList(rawType)
		if !ok || len(types) == 0 {
			r.fail(ErrInvalidRequest, "type", "The 'type' property must be set and must be an array.")
			return
		}
		r.postType = strings.TrimPrefix(str(types[0]), "h-")

		props, ok := body["properties"].(map[string]interface{})
		if !ok {
			r.fail(ErrInvalidRequest, "properties", "The 'properties' property must be set and must be an object.")
			return
		}
		renameLegacy(props)
		r.properties = props
		return
	}

	if rawAction, ok := body["action"]; ok {
		target := str(body["url"])
		if u, err := url.Parse(target); err != nil || !u.IsAbs() || u.Host == "" {
			r.fail(ErrInvalidRequest, "url", "A valid 'url' property is required for "+str(rawAction)+" actions.")
			return
		}
		r.action = Action(str(rawAction))
		r.targetURL = target

		props := map[string]interface{}{}
		for key, value := range body {
			if key == "action" || key == "url" || key == "access_token" {
				continue
			}
			props[key] = value
		}
		r.properties = props
		return
	}

	r.fail(ErrInvalidRequest, "properties", "The request body could not be parsed as either JSON or form syntax.")
}

// formToMf2 translates a form-syntax body into the Mf2 shape: 'h' names the
// post type, action and url pass through, access_token is auth material and
// is stripped, and everything else lands under properties with scalars
// wrapped into single-element sequences.
func formToMf2(body map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{}
	out := map[string]interface{}{"properties": props}

	for key, value := range body {
		switch key {
		case "action", "url":
			out[key] = value
		case "h":
			out["type"] = []interface{}{"h-" + str(value)}
		case "access_token":
		default:
			if list, ok := toList(value); ok {
				props[key] = list
			} else {
				props[key] = []interface{}{value}
			}
		}
	}

	return out
}

func renameLegacy(props map[string]interface{}) {
	for old, now := range map[string]string{
		"slug":         "mp-slug",
		"syndicate-to": "mp-syndicate-to",
	} {
		if value, ok := props[old]; ok {
			props[now] = value
			delete(props, old)
		}
	}
}

// toList reports whether a value is already a sequence, converting form
// field slices to the generic shape JSON decoding produces.
func toList(value interface{}) ([]interface{}, bool) {
	switch value := value.(type) {
	case []interface{}:
		return value, true
	case []string:
		list := make([]interface{}, len(value))
		for i, s := range value {
			list[i] = s
		}
		return list, true
	}

	return nil, false
}

func str(value interface{}) string {
	s, _ := value.(string)
	return s
}
