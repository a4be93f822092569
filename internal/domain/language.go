package domain

// LanguageProfile describes one judge language.
type LanguageProfile struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Extension string `json:"extension"`
}
