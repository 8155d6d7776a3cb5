package mediatypes

import "strings"

// FileType is the simplified MIME class of a file.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "directory"
	// FileTypeImage represents any image/* file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents any video/* file.
	FileTypeVideo FileType = "video"
	// FileTypePDF represents a PDF document.
	FileTypePDF FileType = "pdf"
	// FileTypeText represents any text/* file.
	FileTypeText FileType = "text"
	// FileTypeOther represents everything else.
	FileTypeOther FileType = "file"
)

// classOrder is checked in order; the first substring match wins.
var classOrder = []FileType{FileTypeImage, FileTypeVideo, FileTypePDF, FileTypeText}

// ImageExtensions maps file extensions to whether they are image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".avif": true,
	".svg":  true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// VideoExtensions maps file extensions to whether they are video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".avif": "image/avif",
	".svg":  "image/svg+xml",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",

	".pdf": "application/pdf",
	".txt": "text/plain",
}

// Classify maps a MIME type onto its FileType.
func Classify(mime string) FileType {
	mime = strings.ToLower(mime)
	if mime == string(FileTypeFolder) {
		return FileTypeFolder
	}
	for _, class := range classOrder {
		if strings.Contains(mime, string(class)) {
			return class
		}
	}
	return FileTypeOther
}

// GetFileType returns the FileType for an extension such as ".jpg".
func GetFileType(ext string) FileType {
	return Classify(GetMimeType(strings.ToLower(ext)))
}

// GetMimeType returns the MIME type for an extension such as ".jpg".
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile reports whether the extension is an image or video.
func IsMediaFile(ext string) bool {
	switch GetFileType(ext) {
	case FileTypeImage, FileTypeVideo:
		return true
	}
	return false
}
