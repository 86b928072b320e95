package types

// FAQTheme groups questions under a title. The catalog is static and read-only.
type FAQTheme struct {
	Theme     string        `json:"theme" yaml:"theme"`
	Questions []FAQQuestion `json:"questions" yaml:"questions"`
}

type FAQQuestion struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}
