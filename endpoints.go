package micropub

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/peterhellberg/link"
	"golang.org/x/net/html"
)

var errNoTokenEndpoint = errors.New("no token endpoint found")

// FindTokenEndpoint retrieves the token endpoint advertised by the identity
// URL, checking the Link response header before falling back to <link>
// elements in the page. Pass a nil client to use a default with a bounded
// timeout.
func FindTokenEndpoint(client *http.Client, me string) (*url.URL, error) {
	if client == nil {
		client = defaultClient
	}

	meURL, err := url.Parse(me)
	if err != nil {
		return nil, err
	}

	resp, err := client.Get(meURL.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("bad response from " + meURL.String())
	}

	if l, ok := link.ParseResponse(resp)["token_endpoint"]; ok {
		return meURL.Parse(l.URI)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	if href, ok := findRelLink(root, "token_endpoint"); ok {
		return meURL.Parse(href)
	}

	return nil, errNoTokenEndpoint
}

func findRelLink(node *html.Node, rel string) (string, bool) {
	if node.Type == html.ElementNode && node.Data == "link" {
		for _, candidate := range strings.Fields(getAttr(node, "rel")) {
			if candidate == rel {
				return getAttr(node, "href"), true
			}
		}
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if href, ok := findRelLink(child, rel); ok {
			return href, true
		}
	}

	return "", false
}

func getAttr(node *html.Node, attrName string) string {
	for _, attr := range node.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}

	return ""
}
