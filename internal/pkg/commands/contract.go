package commands

import "time"

// Records exchanged between the gateway and the services. Ids are UUID
// strings.

type Artist struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Country string  `json:"country,omitempty"`
	Albums  []Album `json:"albums,omitempty"`
}

type Album struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	Genre    string  `json:"genre"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	ArtistID string  `json:"artistId"`
	Artist   *Artist `json:"artist,omitempty"`
}

// User never carries the password hash.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

type OrderItem struct {
	ID       string  `json:"id,omitempty"`
	AlbumID  string  `json:"albumId"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Empty is the payload of parameterless commands.
type Empty struct{}

type CreateArtistPayload struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

type CreateAlbumPayload struct {
	Title    string  `json:"title"`
	Year     int     `json:"year"`
	Genre    string  `json:"genre"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	ArtistID string  `json:"artistId"`
}

// ArtistPatch and AlbumPatch change only the fields that are set.
type ArtistPatch struct {
	Name    *string `json:"name,omitempty"`
	Country *string `json:"country,omitempty"`
}

type AlbumPatch struct {
	Title    *string  `json:"title,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Genre    *string  `json:"genre,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Stock    *int     `json:"stock,omitempty"`
	ArtistID *string  `json:"artistId,omitempty"`
}

type UpdateArtistPayload struct {
	ID   string      `json:"id"`
	Data ArtistPatch `json:"data"`
}

type UpdateAlbumPayload struct {
	ID   string     `json:"id"`
	Data AlbumPatch `json:"data"`
}

// StockPayload is shared by decrease_stock and its compensation.
type StockPayload struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CreateUserPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateOrderPayload struct {
	UserID string      `json:"userId"`
	Items  []OrderLine `json:"items"`
}

// OrderLine is one requested item; Price is the unit price the caller
// agreed to and is not re-read from the catalog.
type OrderLine struct {
	AlbumID  string  `json:"albumId"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}
