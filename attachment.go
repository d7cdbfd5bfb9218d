package micropub

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Attachment describes a media file the request referenced or uploaded,
// resolved to a local path.
type Attachment struct {
	Name        string
	ContentType string
	Path        string
	ErrorCode   int
	Size        int64
}

// resolveAttachments turns a sequence of URLs, or {value: url} maps, into
// attachments. A failed fetch records one internal_error on the request and
// skips the entry; the remaining entries still resolve.
func (r *Request) resolveAttachments(values []interface{}) []Attachment {
	var resolved []Attachment

	for _, value := range values {
		rawURL, ok := attachmentURL(value)
		if !ok {
			continue
		}

		u, err := url.Parse(rawURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			continue
		}

		if r.ownOrigin(u) {
			if attachment, ok := r.localAttachment(u); ok {
				resolved = append(resolved, attachment)
			}
			continue
		}

		attachment, err := r.fetchAttachment(u)
		if err != nil {
			r.fail(ErrInternal, rawURL, "Could not fetch an attachment: "+err.Error())
			continue
		}
		resolved = append(resolved, attachment)
	}

	return resolved
}

// attachmentURL unpacks an entry: a bare URL string, or the alt-text
// convention of a map carrying the URL under 'value'.
func attachmentURL(value interface{}) (string, bool) {
	switch value := value.(type) {
	case string:
		return value, true
	case map[string]interface{}:
		if s, ok := value["value"].(string); ok {
			return s, true
		}
	}

	return "", false
}

func (r *Request) ownOrigin(u *url.URL) bool {
	me, err := url.Parse(r.config.Me)
	if err != nil {
		return false
	}

	return u.Scheme == me.Scheme && u.Host == me.Host
}

// localAttachment resolves a URL on our own origin straight from MediaDir,
// without a fetch. A missing file means no attachment, not an error.
func (r *Request) localAttachment(u *url.URL) (Attachment, bool) {
	localPath := filepath.Join(r.config.MediaDir, filepath.FromSlash(strings.TrimPrefix(u.Path, "/")))

	info, err := os.Stat(localPath)
	if err != nil || info.IsDir() {
		return Attachment{}, false
	}

	return Attachment{
		Name:        filepath.Base(localPath),
		ContentType: mime.TypeByExtension(filepath.Ext(localPath)),
		Path:        localPath,
		Size:        info.Size(),
	}, true
}

// fetchAttachment downloads the URL and writes it under a fresh random
// subdirectory of UploadDir, so concurrent requests cannot collide.
func (r *Request) fetchAttachment(u *url.URL) (Attachment, error) {
	resp, err := r.config.httpClient().Get(u.String())
	if err != nil {
		return Attachment{}, err
	}
	defer resp.Body.Close()

	name := safeFilename(resp.Request.URL)
	localPath, size, err := r.writeUpload(name, resp.Body)
	if err != nil {
		return Attachment{}, err
	}

	errorCode := 0
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorCode = resp.StatusCode
	}

	return Attachment{
		Name:        name,
		ContentType: resp.Header.Get("Content-Type"),
		Path:        localPath,
		ErrorCode:   errorCode,
		Size:        size,
	}, nil
}

// saveUploads stores multipart file parts named for an attachment kind,
// with or without the [] suffix, alongside the fetched attachments.
func (r *Request) saveUploads() {
	fields := make([]string, 0, len(r.files))
	for field := range r.files {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		kind := strings.TrimSuffix(field, "[]")
		if !attachmentKinds[kind] {
			continue
		}

		for _, header := range r.files[field] {
			attachment, err := r.saveUpload(header)
			if err != nil {
				r.fail(ErrInternal, header.Filename, "Could not save an uploaded file: "+err.Error())
				continue
			}
			r.attachments[kind] = append(r.attachments[kind], attachment)
		}
	}
}

func (r *Request) saveUpload(header *multipart.FileHeader) (Attachment, error) {
	file, err := header.Open()
	if err != nil {
		return Attachment{}, err
	}
	defer file.Close()

	name := sanitizeFilename(header.Filename)
	localPath, size, err := r.writeUpload(name, file)
	if err != nil {
		return Attachment{}, err
	}

	return Attachment{
		Name:        name,
		ContentType: header.Header.Get("Content-Type"),
		Path:        localPath,
		Size:        size,
	}, nil
}

func (r *Request) writeUpload(name string, from io.Reader) (string, int64, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", 0, err
	}
	dir := filepath.Join(r.config.UploadDir, base64.RawURLEncoding.EncodeToString(buf))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, err
	}

	localPath := filepath.Join(dir, name)
	file, err := os.Create(localPath)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	size, err := io.Copy(file, from)
	if err != nil {
		return "", 0, err
	}

	return localPath, size, nil
}

func safeFilename(u *url.URL) string {
	return sanitizeFilename(path.Base(u.Path))
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)

	if name == "" || name == "." || name == ".." || name == "-" {
		return "file"
	}

	return name
}
