package core

// PublicationMetadata is the v2 publication metadata document stored behind
// a content URI
type PublicationMetadata struct {
	Version          string              `json:"version"`
	MetadataID       string              `json:"metadata_id"`
	Content          string              `json:"content"`
	Description      string              `json:"description"`
	Name             string              `json:"name"`
	ExternalURL      string              `json:"external_url,omitempty"`
	MainContentFocus string              `json:"mainContentFocus"`
	Attributes       []MetadataAttribute `json:"attributes"`
	Locale           string              `json:"locale"`
}

// MetadataAttribute is a free-form attribute of a publication
type MetadataAttribute struct {
	DisplayType string `json:"displayType,omitempty"`
	TraitType   string `json:"traitType"`
	Value       string `json:"value"`
}

// MetadataValidation is the service verdict on a metadata document
type MetadataValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
