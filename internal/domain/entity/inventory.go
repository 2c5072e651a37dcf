package entity

type InventoryItem struct {
	Name        string
	Price       string
	Description string
}

type Credentials struct {
	Username   string
	Password   string
	ClickLogin bool
}
