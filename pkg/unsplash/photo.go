package unsplash

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Photo is one record of the random photos endpoint. Only the fields the
// gallery renders are decoded.
type Photo struct {
	ID string `json:"id"`

	// URLs holds the image renditions; Regular is the one displayed.
	URLs PhotoURLs `json:"urls"`

	// Links holds the photo's pages; HTML is the click-through target.
	Links PhotoLinks `json:"links"`

	// AltDescription is null in the API for many photos.
	AltDescription *string `json:"alt_description"`
}

// PhotoURLs are the image renditions of a photo.
type PhotoURLs struct {
	Raw     string `json:"raw,omitempty"`
	Full    string `json:"full,omitempty"`
	Regular string `json:"regular"`
	Small   string `json:"small,omitempty"`
	Thumb   string `json:"thumb,omitempty"`
}

// PhotoLinks are the API and web links of a photo.
type PhotoLinks struct {
	Self     string `json:"self,omitempty"`
	HTML     string `json:"html"`
	Download string `json:"download,omitempty"`
}

// DisplayURL returns the image source to render.
func (p Photo) DisplayURL() string {
	return p.URLs.Regular
}

// LinkURL returns the page the rendered image links to.
func (p Photo) LinkURL() string {
	return p.Links.HTML
}

// Description returns the alt description and whether it is present.
// An empty string counts as absent.
func (p Photo) Description() (string, bool) {
	if p.AltDescription == nil || *p.AltDescription == "" {
		return "", false
	}
	return *p.AltDescription, true
}

// photoRecord mirrors Photo with the nested objects as pointers, so that a
// null record or a record without urls or links can be told apart from one
// with empty strings.
type photoRecord struct {
	ID             string      `json:"id"`
	URLs           *PhotoURLs  `json:"urls"`
	Links          *PhotoLinks `json:"links"`
	AltDescription *string     `json:"alt_description"`
}

// decodePhotos decodes a JSON array of photo records. A null body, a null
// record, or a record without urls or links is rejected.
func decodePhotos(r io.Reader) ([]Photo, error) {
	var records *[]*photoRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, errors.New("body is null, want an array of photos")
	}

	photos := make([]Photo, 0, len(*records))
	for i, rec := range *records {
		switch {
		case rec == nil:
			return nil, fmt.Errorf("photo %d is null", i)
		case rec.URLs == nil:
			return nil, fmt.Errorf("photo %d (%q) has no urls", i, rec.ID)
		case rec.Links == nil:
			return nil, fmt.Errorf("photo %d (%q) has no links", i, rec.ID)
		}
		photos = append(photos, Photo{
			ID:             rec.ID,
			URLs:           *rec.URLs,
			Links:          *rec.Links,
			AltDescription: rec.AltDescription,
		})
	}
	return photos, nil
}
