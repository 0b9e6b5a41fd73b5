package models

import "time"

// Location is the wire shape of a store coordinate.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StoreView is the serialized form of a Store.
type StoreView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	GooglePlaceID string   `json:"googlePlaceId,omitempty"`
	Address       string   `json:"address"`
	IconURL       string   `json:"iconUrl"`
	Location      Location `json:"location"`
}

// PosterView is the reduced user projection embedded in products.
type PosterView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ProductView is the denormalized serialized form of a Product.
type ProductView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Quantity    Quantity   `json:"quantity"`
	Price       Money      `json:"price"`
	Poster      PosterView `json:"poster"`
	Store       StoreView  `json:"store"`
	LikedUsers  []string   `json:"likedUsers"`
	Tags        []Tag      `json:"tags"`
	Image       string     `json:"image,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// UserView is what a user may see about their own account.
type UserView struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Provider  Provider `json:"provider"`
}

// NewStoreView converts a Store to its wire form.
func NewStoreView(s Store) StoreView {
	return StoreView{
		ID:            s.ID,
		Name:          s.Name,
		GooglePlaceID: s.PlaceID(),
		Address:       s.Address,
		IconURL:       s.IconURL,
		Location: Location{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
		},
	}
}

// NewStoreViews converts a slice of stores, never returning nil.
func NewStoreViews(stores []Store) []StoreView {
	views := make([]StoreView, 0, len(stores))
	for _, s := range stores {
		views = append(views, NewStoreView(s))
	}
	return views
}

// NewProductView converts a Product with its preloaded Store and Poster.
// Only the poster's id and names are exposed.
func NewProductView(p Product) ProductView {
	liked := make([]string, 0, len(p.LikedUsers))
	for _, u := range p.LikedUsers {
		liked = append(liked, u.ID)
	}
	tags := p.Tags
	if tags == nil {
		tags = []Tag{}
	}
	return ProductView{
		ID:       p.ID,
		Name:     p.Name,
		Quantity: p.Quantity,
		Price:    p.Price,
		Poster: PosterView{
			ID:        p.PosterID,
			FirstName: p.Poster.FirstName,
			LastName:  p.Poster.LastName,
		},
		Store:       NewStoreView(p.Store),
		LikedUsers:  liked,
		Tags:        tags,
		Image:       p.Image,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

// NewProductViews converts a slice of products, never returning nil.
func NewProductViews(products []Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, NewProductView(p))
	}
	return views
}

// NewUserView converts a User, dropping credentials and federated ids.
func NewUserView(u User) UserView {
	return UserView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Provider:  u.Provider,
	}
}
