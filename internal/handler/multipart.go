package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"videotube/internal/asset"
	"videotube/pkg/apierror"
)

const multipartMemory = 8 << 20

// uploadForm wraps a parsed multipart request and tracks the files it opens.
type uploadForm struct {
	r     *http.Request
	files []multipart.File
}

func parseUploadForm(w http.ResponseWriter, r *http.Request, maxSize int64) (*uploadForm, error) {
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apierror.New(apierror.CodePayloadTooLarge, "upload exceeds size limit", "", http.StatusRequestEntityTooLarge)
		}
		return nil, apierror.Validation("invalid multipart form", "")
	}

	return &uploadForm{r: r}, nil
}

func (f *uploadForm) value(name string) string {
	return strings.TrimSpace(f.r.FormValue(name))
}

// file returns the named upload or nil when the field is absent. The content
// type is sniffed from the first bytes rather than trusted from the client.
func (f *uploadForm) file(name string, kind asset.Kind) (*asset.Upload, error) {
	file, header, err := f.r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.Validation("invalid "+name+" upload", "")
	}
	f.files = append(f.files, file)

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apierror.Validation("invalid "+name+" upload", "")
	}
	head = head[:n]
	if n == 0 {
		return nil, apierror.Validation(name+" file is empty", "")
	}

	contentType := asset.DetectContentType(head, header.Header.Get("Content-Type"), header.Filename)
	if kind.IsImage() && !asset.IsImageMIME(contentType) {
		return nil, apierror.Validation(name+" must be an image", header.Filename)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, apierror.Validation("invalid "+name+" upload", "")
	}

	return &asset.Upload{
		Kind:        kind,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}, nil
}

func (f *uploadForm) Close() {
	for _, file := range f.files {
		_ = file.Close()
	}
	if f.r.MultipartForm != nil {
		_ = f.r.MultipartForm.RemoveAll()
	}
}
