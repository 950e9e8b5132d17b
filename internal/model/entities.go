package model

// 以下 Kind() 的返回值与 internal/kind 注册表中的键一致。

// Species 是一个宝可梦物种，可以有多个 Pokemon 形态。
type Species struct {
	ID                int             `json:"id"`
	Name              string          `json:"name"`
	Order             int             `json:"order"`
	GenderRate        int             `json:"gender_rate"`
	CaptureRate       int             `json:"capture_rate"`
	BaseHappiness     int             `json:"base_happiness"`
	IsBaby            bool            `json:"is_baby"`
	IsLegendary       bool            `json:"is_legendary"`
	IsMythical        bool            `json:"is_mythical"`
	Names             Names           `json:"names"`
	FlavorTextEntries []FlavorText    `json:"flavor_text_entries"`
	Generation        NamedResource   `json:"generation"`
	Varieties         []Variety       `json:"varieties"`
	EvolvesFrom       *NamedResource  `json:"evolves_from_species"`
	PokedexNumbers    []PokedexNumber `json:"pokedex_numbers"`
}

func (Species) Kind() string { return "species" }

// Variety 把物种关联到它的某个形态。
type Variety struct {
	IsDefault bool          `json:"is_default"`
	Pokemon   NamedResource `json:"pokemon"`
}

// PokedexNumber 是物种在某个图鉴中的编号。
type PokedexNumber struct {
	EntryNumber int           `json:"entry_number"`
	Pokedex     NamedResource `json:"pokedex"`
}

// Pokemon 是物种的一个具体形态，携带能力值与图像。
type Pokemon struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Order          int           `json:"order"`
	IsDefault      bool          `json:"is_default"`
	BaseExperience int           `json:"base_experience"`
	Height         int           `json:"height"`
	Weight         int           `json:"weight"`
	Species        NamedResource `json:"species"`
	Types          []TypeSlot    `json:"types"`
	Stats          []BaseStat    `json:"stats"`
	Sprites        Sprites       `json:"sprites"`
}

func (Pokemon) Kind() string { return "pokemon" }

// TypeSlot 是形态的属性槽位。
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// BaseStat 是单项种族值。
type BaseStat struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

// Sprites 是图像地址，缺失时为 nil。
type Sprites struct {
	FrontDefault *string `json:"front_default"`
	FrontShiny   *string `json:"front_shiny"`
	BackDefault  *string `json:"back_default"`
}

// Item 是可携带或使用的道具。
type Item struct {
	ID                int             `json:"id"`
	Name              string          `json:"name"`
	Cost              int             `json:"cost"`
	FlingPower        *int            `json:"fling_power"`
	Category          NamedResource   `json:"category"`
	Attributes        []NamedResource `json:"attributes"`
	Names             Names           `json:"names"`
	EffectEntries     []Effect        `json:"effect_entries"`
	FlavorTextEntries []ItemFlavor    `json:"flavor_text_entries"`
	Sprites           ItemSprites     `json:"sprites"`
}

func (Item) Kind() string { return "item" }

// ItemFlavor 的版本字段按版本组区分，与物种描述不同。
type ItemFlavor struct {
	Text         string        `json:"text"`
	Language     NamedResource `json:"language"`
	VersionGroup NamedResource `json:"version_group"`
}

// ItemSprites 是道具图标地址。
type ItemSprites struct {
	Default *string `json:"default"`
}

// Move 是对战招式。
type Move struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	Accuracy      *int          `json:"accuracy"`
	Power         *int          `json:"power"`
	PP            *int          `json:"pp"`
	Priority      int           `json:"priority"`
	Type          NamedResource `json:"type"`
	DamageClass   NamedResource `json:"damage_class"`
	Generation    NamedResource `json:"generation"`
	Names         Names         `json:"names"`
	EffectEntries []Effect      `json:"effect_entries"`
}

func (Move) Kind() string { return "move" }

// Location 是某个地区中的地点。
type Location struct {
	ID     int             `json:"id"`
	Name   string          `json:"name"`
	Region *NamedResource  `json:"region"`
	Names  Names           `json:"names"`
	Areas  []NamedResource `json:"areas"`
}

func (Location) Kind() string { return "location" }
