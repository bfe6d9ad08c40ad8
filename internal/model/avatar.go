package model

// Avatar is a contact's avatar reference. The roster stores remote URLs
// only, so the service redirects to the image rather than proxying bytes.
type Avatar struct {
	UserName string `json:"userName"`
	URL      string `json:"url"`
}
