package kind

// 内置类型的键，与 model 包中各实体的 Kind() 一致。
const (
	Species  = "species"
	Pokemon  = "pokemon"
	Item     = "item"
	Move     = "move"
	Location = "location"
)

func init() {
	MustRegister(Metadata{
		Key:         Species,
		Description: "Pokémon species and their localized names",
		Endpoint:    "pokemon-species",
		Download:    true,
	})
	MustRegister(Metadata{
		Key:         Pokemon,
		Description: "Pokémon varieties (forms) with stats and sprites",
		Endpoint:    "pokemon",
	})
	MustRegister(Metadata{
		Key:         Item,
		Description: "Items usable in and out of battle",
		Endpoint:    "item",
		Download:    true,
	})
	MustRegister(Metadata{
		Key:         Move,
		Description: "Battle moves",
		Endpoint:    "move",
		Download:    true,
	})
	MustRegister(Metadata{
		Key:         Location,
		Description: "Regions and locations",
		Endpoint:    "location",
		Download:    true,
	})
}
