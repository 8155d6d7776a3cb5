package derivative

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"media-derive/internal/codec"
	"media-derive/internal/storage"
)

var (
	// ErrNotADerivative means the request name carries no _mod marker.
	ErrNotADerivative = errors.New("not a derivative request")
	// ErrSourceNotFound means no source exists for the decoded base.
	ErrSourceNotFound = errors.New("source not found")
	// ErrDuplicateModifier means a modifier kind appears more than once.
	ErrDuplicateModifier = errors.New("duplicate modifier")
)

const (
	modMarker = "_mod"
	// ThumbnailSuffix follows the source base in thumbnail names.
	ThumbnailSuffix = "_thumbnail_"
)

// DefaultSourceExts is the probe order used by ResolveSource.
var DefaultSourceExts = []string{"jpg", "jpeg", "png", "webp", "avif"}

// TransformSpec is a requested transform. Zero fields are absent.
type TransformSpec struct {
	Width   int
	Height  int
	Quality int
	// Format overrides the output format. Decode leaves it unset; the
	// requested extension is carried on Request and the override is decided
	// once the source is known.
	Format codec.Format
}

// IsEmpty reports whether the transform only re-encodes.
func (s TransformSpec) IsEmpty() bool {
	return s.Width == 0 && s.Height == 0 && s.Quality == 0
}

// Modifiers returns the canonical modifier string, e.g. "w300_h200_q80".
func (s TransformSpec) Modifiers() string {
	mods := make([]string, 0, 3)
	if s.Width > 0 {
		mods = append(mods, "w"+strconv.Itoa(s.Width))
	}
	if s.Height > 0 {
		mods = append(mods, "h"+strconv.Itoa(s.Height))
	}
	if s.Quality > 0 {
		mods = append(mods, "q"+strconv.Itoa(s.Quality))
	}
	return strings.Join(mods, "_")
}

func (s TransformSpec) String() string {
	mods := s.Modifiers()
	if s.Format != codec.FormatUnknown {
		if mods == "" {
			return string(s.Format)
		}
		return mods + " " + string(s.Format)
	}
	if mods == "" {
		return "re-encode"
	}
	return mods
}

// ParseModifiers parses an underscore separated modifier list such as
// "w300_h200" or "q80_w300". Unknown tokens and zero values are skipped; a
// kind given twice is an error.
func ParseModifiers(mods string) (TransformSpec, error) {
	var spec TransformSpec
	for _, tok := range strings.Split(mods, "_") {
		if len(tok) < 2 {
			continue
		}
		n, err := strconv.ParseUint(tok[1:], 10, 31)
		if err != nil || n == 0 {
			continue
		}
		var field *int
		switch tok[0] {
		case 'w', 'W':
			field = &spec.Width
		case 'h', 'H':
			field = &spec.Height
		case 'q', 'Q':
			field = &spec.Quality
		default:
			continue
		}
		if *field != 0 {
			return TransformSpec{}, fmt.Errorf("%w: %q", ErrDuplicateModifier, tok[:1])
		}
		*field = int(n)
	}
	return spec, nil
}

// Validate checks value ranges.
func (s TransformSpec) Validate() error {
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("invalid dimensions %dx%d", s.Width, s.Height)
	}
	if s.Quality < 0 || s.Quality > 100 {
		return fmt.Errorf("quality %d out of range 1-100", s.Quality)
	}
	return nil
}

// Request is a decoded request path.
type Request struct {
	// Dir is the cleaned directory, always rooted.
	Dir string
	// Base is the source candidate base name.
	Base string
	// Ext is the requested extension, lower case, without the dot.
	Ext string
	// Name is the requested file name as it appeared in the path.
	Name string
	Spec TransformSpec
	// IsDerivative is false when the name has no _mod marker or repeats a
	// modifier.
	IsDerivative bool
}

// Path returns the cleaned request path, which is also the destination.
func (r Request) Path() string {
	return path.Join(r.Dir, r.Name)
}

// Encode returns the derivative file name for sourceName under spec.
// An empty spec without a format override names the source itself; an empty
// spec with an override yields "<base>_mod.<ext>".
func Encode(sourceName string, spec TransformSpec) string {
	name := path.Base(sourceName)
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	outExt := strings.TrimPrefix(ext, ".")
	if spec.Format != codec.FormatUnknown {
		outExt = FormatExt(spec.Format)
	}

	mods := spec.Modifiers()
	switch {
	case mods != "":
		return base + modMarker + "_" + mods + "." + outExt
	case spec.Format != codec.FormatUnknown:
		return base + modMarker + "." + outExt
	default:
		return base + "." + outExt
	}
}

// EncodePath is Encode keeping the directory of sourcePath.
func EncodePath(sourcePath string, spec TransformSpec) string {
	return path.Join(path.Dir(sourcePath), Encode(sourcePath, spec))
}

// URL builds the public request path for a derivative of sourcePath under
// the storage URL prefix.
func URL(prefix, sourcePath string, spec TransformSpec) string {
	clean, err := storage.Clean(sourcePath)
	if err != nil {
		return ""
	}
	p := path.Join("/", prefix, EncodePath(clean, spec))
	return (&url.URL{Path: p}).EscapedPath()
}

// FormatExt is the canonical file extension for f.
func FormatExt(f codec.Format) string {
	if f == codec.FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Decode parses a storage-relative request path. It never fails on an
// unknown modifier; the only error is a path that escapes the root.
func Decode(requestPath string) (Request, error) {
	clean, err := storage.Clean(requestPath)
	if err != nil {
		return Request{}, err
	}

	dir, name := path.Split(clean)
	req := Request{
		Dir:  path.Clean(dir),
		Name: name,
	}

	ext := path.Ext(name)
	filename := strings.TrimSuffix(name, ext)
	req.Ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	req.Base = filename

	base, mods, ok := splitMarker(filename)
	if !ok {
		return req, nil
	}

	// An ambiguous modifier list makes the name a plain file name.
	spec, err := ParseModifiers(mods)
	if err != nil {
		return req, nil
	}

	req.Base = base
	req.IsDerivative = true
	req.Spec = spec
	return req, nil
}

// splitMarker splits on the first case-insensitive "_mod_" or a trailing
// "_mod". The base must be non-empty.
func splitMarker(filename string) (base, mods string, ok bool) {
	lower := strings.ToLower(filename)

	if i := strings.Index(lower, modMarker+"_"); i > 0 {
		return filename[:i], filename[i+len(modMarker)+1:], true
	}
	if strings.HasSuffix(lower, modMarker) && len(filename) > len(modMarker) {
		return filename[:len(filename)-len(modMarker)], "", true
	}
	return "", "", false
}

// IsArtifact reports whether name is a derivative or thumbnail file name.
func IsArtifact(name string) bool {
	filename := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if _, _, ok := splitMarker(filename); ok {
		return true
	}
	return strings.HasSuffix(filename, ThumbnailSuffix)
}

// ThumbnailName returns the thumbnail file name for a source base.
func ThumbnailName(base, ext string) string {
	return base + ThumbnailSuffix + "." + ext
}

// ThumbnailDir returns the directory holding thumbnails for sources in
// sourceDir. An empty thumbRoot keeps thumbnails beside their sources.
func ThumbnailDir(thumbRoot, sourceDir string) string {
	if thumbRoot == "" {
		return path.Clean("/" + sourceDir)
	}
	return path.Join("/", thumbRoot, sourceDir)
}

// Source is a resolved source asset.
type Source struct {
	Path   string
	Ext    string
	Format codec.Format
	Size   int64
}

// ResolveSource probes dir/base.<ext> for each of exts in order and returns
// the first that exists as a regular file.
func ResolveSource(root *storage.Root, dir, base string, exts []string) (*Source, error) {
	if len(exts) == 0 {
		exts = DefaultSourceExts
	}

	for _, ext := range exts {
		candidate := path.Join(dir, base+"."+ext)
		info, err := root.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		format, _ := codec.FormatFromExt(ext)
		return &Source{
			Path:   path.Clean("/" + candidate),
			Ext:    ext,
			Format: format,
			Size:   info.Size(),
		}, nil
	}

	return nil, fmt.Errorf("%w: %s/%s.{%s}", ErrSourceNotFound, strings.TrimSuffix(dir, "/"), base, strings.Join(exts, ","))
}

// OutputFormat returns the format to encode: the requested extension's when
// it differs from the source's, otherwise the source's own.
func OutputFormat(req Request, src *Source) (codec.Format, error) {
	if req.Ext == src.Ext {
		return src.Format, nil
	}
	f, ok := codec.FormatFromExt(req.Ext)
	if !ok {
		return codec.FormatUnknown, fmt.Errorf("%w: %q", codec.ErrUnsupportedOutputFormat, req.Ext)
	}
	return f, nil
}
