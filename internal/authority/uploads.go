package authority

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/figureboard/figureboard/pkg/streaming"
)

// UploadField is the multipart field carrying the map image.
const UploadField = "map"

// UploadsURLPrefix is the URL path uploaded maps are served under.
const UploadsURLPrefix = "/uploads/"

// SanitizeFileName strips directories and replaces spaces with underscores.
// It returns "" for names that cannot be stored.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	switch name {
	case "", ".", "..", "/":
		return ""
	}
	return name
}

// Maps returns the default map followed by every uploaded file in
// directory order.
func (s *Server) Maps() ([]string, error) {
	maps := []string{s.cfg.DefaultMap}

	entries, err := afero.ReadDir(s.fs, s.cfg.UploadsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return maps, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			maps = append(maps, UploadsURLPrefix+e.Name())
		}
	}
	return maps, nil
}

func (s *Server) listMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.Maps()
	if err != nil {
		s.log.Error("list maps", "error", err)
		errorJSON(w, http.StatusInternalServerError, "error reading uploads")
		return
	}
	writeJSON(w, http.StatusOK, maps)
}

func (s *Server) uploadMap(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorJSON(w, http.StatusRequestEntityTooLarge, "map too large")
			return
		}
		errorJSON(w, http.StatusBadRequest, "error parsing form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "error reading file")
		return
	}
	defer file.Close()

	name := SanitizeFileName(header.Filename)
	if name == "" {
		errorJSON(w, http.StatusBadRequest, "invalid file name")
		return
	}

	if err := s.saveUpload(name, file); err != nil {
		s.log.Error("save upload", "file", name, "error", err)
		errorJSON(w, http.StatusInternalServerError, "error saving file")
		return
	}

	mapURL := UploadsURLPrefix + name
	if err := s.apply(streaming.TypeSetMap, streaming.SetMapPayload{Map: mapURL}, "upload"); err != nil {
		s.log.Error("set uploaded map", "map", mapURL, "error", err)
		errorJSON(w, http.StatusInternalServerError, "error setting map")
		return
	}

	s.log.Info("map uploaded", "map", mapURL, "bytes", header.Size)
	writeJSON(w, http.StatusOK, streaming.SetMapPayload{Map: mapURL})
}

func (s *Server) saveUpload(name string, src io.Reader) error {
	if err := s.fs.MkdirAll(s.cfg.UploadsDir, 0755); err != nil {
		return err
	}
	dst, err := s.fs.Create(filepath.Join(s.cfg.UploadsDir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
