package models

import (
	"encoding/json"
	"time"
)

// MediaType is the coarse kind of an uploaded media file.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaTypeFromContentType maps a declared MIME type to a MediaType.
// Anything that is not image/* is treated as video, matching the upload allow-list
// which only admits image and video extensions.
func MediaTypeFromContentType(contentType string) MediaType {
	if len(contentType) >= 6 && contentType[:6] == "image/" {
		return MediaTypeImage
	}
	return MediaTypeVideo
}

// AnalysisResult is the outcome of analyzing a single image or video frame.
type AnalysisResult struct {
	Description string   `json:"description" msgpack:"description"`
	Tags        []string `json:"tags" msgpack:"tags"`
	Objects     []string `json:"objects" msgpack:"objects"`
	Faces       int      `json:"faces" msgpack:"faces"`
}

// MediaAnalysis is one processed upload as stored in the analysis store.
type MediaAnalysis struct {
	ID         int64           `json:"id" msgpack:"id"`
	Filename   string          `json:"filename" msgpack:"filename"`
	UploadDate time.Time       `json:"upload_date" msgpack:"upload_date"`
	Result     *AnalysisResult `json:"analysis_result" msgpack:"analysis_result"`
	MediaType  MediaType       `json:"media_type" msgpack:"media_type"`
	Processed  bool            `json:"processed" msgpack:"processed"`
}

// ResultJSON returns the analysis result encoded for storage. A nil result encodes as "".
func (m *MediaAnalysis) ResultJSON() (string, error) {
	if m.Result == nil {
		return "", nil
	}
	data, err := json.Marshal(m.Result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetResultJSON decodes a stored analysis result. Empty input clears the result.
func (m *MediaAnalysis) SetResultJSON(raw string) error {
	if raw == "" {
		m.Result = nil
		return nil
	}
	var result AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return err
	}
	m.Result = &result
	return nil
}
