package catalog

// Item is a mintable in-game item. ID doubles as the on-chain item identifier.
type Item struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	ImagePath string `json:"image"`
}

var items = []Item{
	{ID: 0, Name: "ASSAULT RIFLE", ImagePath: "/items/assault.png"},
	{ID: 1, Name: "SNIPER RIFLE", ImagePath: "/items/sniper.png"},
	{ID: 2, Name: "SUBMACHINE GUN", ImagePath: "/items/smg.png"},
	{ID: 3, Name: "PISTOL", ImagePath: "/items/pistol.png"},
	{ID: 4, Name: "BOMB", ImagePath: "/items/bomb.png"},
}

// Items returns a copy of the catalog in display order.
func Items() []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func Lookup(id uint64) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
