package model

// DefaultLanguage 是本地化文本缺失目标语言时的回退语言。
const DefaultLanguage = "en"

// Name 是某种语言下的名字。
type Name struct {
	Name     string        `json:"name"`
	Language NamedResource `json:"language"`
}

// Names 是同一对象的多语言名字。
type Names []Name

// In 返回 lang 下的名字，缺失时回退到英文，仍缺失返回空串。
func (n Names) In(lang string) string {
	var fallback string
	for _, entry := range n {
		switch entry.Language.Name {
		case lang:
			return entry.Name
		case DefaultLanguage:
			fallback = entry.Name
		}
	}
	return fallback
}

// FlavorText 是附带版本信息的描述文本。
type FlavorText struct {
	Text     string        `json:"flavor_text"`
	Language NamedResource `json:"language"`
	Version  NamedResource `json:"version,omitempty"`
}

// Effect 是物品或招式的效果说明。
type Effect struct {
	Effect      string        `json:"effect"`
	ShortEffect string        `json:"short_effect"`
	Language    NamedResource `json:"language"`
}
