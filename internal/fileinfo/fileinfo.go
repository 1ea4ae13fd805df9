// Package fileinfo collects the per-path classification attributes recorded
// on inventoried tree nodes: names, dates, sizes, content digests, MIME and
// file types, language, and the is_* classification flags.
package fileinfo

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// headSize is how much of a file is sniffed for MIME detection and the
// shebang check. Matches the mimetype library's own read limit.
const headSize = 3072

// Info is the classification attribute set for a single filesystem path.
// Directories carry only the cheap subset (type, names, date); files get
// digests, MIME/file types, language, and flags as well.
type Info struct {
	Type                string
	Name                string
	BaseName            string
	Extension           string
	Date                string
	Size                int64
	SHA1                string
	MD5                 string
	MimeType            string
	FileType            string
	ProgrammingLanguage string
	IsBinary            bool
	IsText              bool
	IsArchive           bool
	IsMedia             bool
	IsSource            bool
	IsScript            bool

	// Lines is the newline-delimited line count for text files, 0 otherwise.
	// It is a scan by-product, not a classification attribute.
	Lines int
}

// archiveMimes are the MIME types classified as archives. Matching goes
// through mimetype's Is, which also covers registered aliases.
var archiveMimes = []string{
	"application/zip",
	"application/gzip",
	"application/x-tar",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
	"application/x-bzip2",
	"application/x-xz",
	"application/jar",
	"application/vnd.debian.binary-package",
	"application/x-rpm",
}

// Collect gathers the Info for location. The file is opened once: the first
// headSize bytes feed MIME detection, then the stream is rewound and fully
// consumed to compute SHA1 and MD5 in a single pass.
func Collect(location string) (Info, error) {
	fi, err := os.Lstat(location)
	if err != nil {
		return Info{}, fmt.Errorf("collect %s: %w", location, err)
	}

	name := fi.Name()
	ext := filepath.Ext(name)
	inf := Info{
		Name: name,
		Date: fi.ModTime().UTC().Format("2006-01-02"),
	}

	if fi.IsDir() {
		inf.Type = "directory"
		inf.BaseName = name
		return inf, nil
	}
	if !fi.Mode().IsRegular() {
		return Info{}, fmt.Errorf("collect %s: not a regular file", location)
	}

	inf.Type = "file"
	inf.BaseName = strings.TrimSuffix(name, ext)
	inf.Extension = ext
	inf.Size = fi.Size()

	f, err := os.Open(location)
	if err != nil {
		return Info{}, fmt.Errorf("collect %s: %w", location, err)
	}
	defer f.Close()

	head := make([]byte, headSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Info{}, fmt.Errorf("collect %s: %w", location, err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	inf.MimeType = mt.String()
	inf.IsText = strings.HasPrefix(inf.MimeType, "text/")
	inf.IsBinary = !inf.IsText
	inf.IsMedia = strings.HasPrefix(inf.MimeType, "image/") ||
		strings.HasPrefix(inf.MimeType, "audio/") ||
		strings.HasPrefix(inf.MimeType, "video/")
	for _, m := range archiveMimes {
		if mt.Is(m) {
			inf.IsArchive = true
			break
		}
	}

	lang, _ := LanguageForFile(name)
	inf.ProgrammingLanguage = lang
	inf.IsSource = inf.IsText && lang != ""
	inf.IsScript = scriptLanguages[lang] || bytes.HasPrefix(head, []byte("#!"))

	switch {
	case inf.Size == 0:
		inf.FileType = "empty"
	case inf.IsText:
		inf.FileType = "text"
	default:
		inf.FileType = "data"
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Info{}, fmt.Errorf("collect %s: %w", location, err)
	}

	sha := sha1.New()
	md := md5.New()
	var lines lineCounter
	w := io.MultiWriter(sha, md)
	if inf.IsText {
		w = io.MultiWriter(sha, md, &lines)
	}
	if _, err := io.Copy(w, f); err != nil {
		return Info{}, fmt.Errorf("collect %s: %w", location, err)
	}
	inf.SHA1 = hex.EncodeToString(sha.Sum(nil))
	inf.MD5 = hex.EncodeToString(md.Sum(nil))
	if inf.IsText {
		inf.Lines = lines.count + 1
	}

	return inf, nil
}

// lineCounter counts newlines as content streams through it.
type lineCounter struct {
	count int
}

func (lc *lineCounter) Write(p []byte) (int, error) {
	lc.count += bytes.Count(p, []byte{'\n'})
	return len(p), nil
}
