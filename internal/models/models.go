package models

import (
	"time"
)

const (
	ItemTypePurchase = "purchase"
	ItemTypeRental   = "rental"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type Bike struct {
	ID            uint              `gorm:"primaryKey;autoIncrement"                     json:"id"`
	Name          string            `gorm:"not null"                                     json:"name"`
	Type          string            `gorm:"not null"                                     json:"type"`
	Description   string            `json:"description"`
	Price         float64           `gorm:"not null;check:price >= 0"                    json:"price"`
	RentalPrice   float64           `gorm:"not null;check:rental_price >= 0"             json:"rental_price"`
	PurchaseStock int               `gorm:"not null;default:0;check:purchase_stock >= 0" json:"purchase_stock"`
	AverageRating float64           `gorm:"not null;default:0"                           json:"average_rating"`
	ReviewCount   int               `gorm:"not null;default:0"                           json:"review_count"`
	RentalStocks  []RentalInventory `gorm:"foreignKey:BikeID"                            json:"rental_stocks,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// RentalInventory is the per-location rental stock of a bike, one row per
// location where the bike can be rented. Distinct from Bike.PurchaseStock.
type RentalInventory struct {
	ID         uint `gorm:"primaryKey"                             json:"id"`
	BikeID     uint `gorm:"not null;uniqueIndex:idx_bike_location" json:"bike_id"`
	LocationID uint `gorm:"not null;uniqueIndex:idx_bike_location" json:"location_id"`
	Stock      int  `gorm:"not null;default:0;check:stock >= 0"    json:"stock"`
}

type Location struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code    string `gorm:"unique;not null"          json:"code"`
	Name    string `gorm:"not null"                 json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Phone   string `json:"phone"`
}

type CartItem struct {
	ID         uint       `gorm:"primaryKey"                 json:"id"`
	UserID     uint       `gorm:"index;not null"             json:"user_id"`
	BikeID     uint       `gorm:"not null"                   json:"bike_id"`
	ItemType   string     `gorm:"not null"                   json:"item_type"`
	Quantity   uint       `gorm:"default:1;check:quantity>0" json:"quantity"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	LocationID *uint      `json:"location_id,omitempty"`
	Bike       Bike       `gorm:"foreignKey:BikeID"          json:"bike"`
	Location   *Location  `gorm:"foreignKey:LocationID"      json:"location,omitempty"`
}

type Order struct {
	ID              uint        `gorm:"primaryKey"         json:"id"`
	UserID          uint        `gorm:"index;not null"     json:"user_id"`
	Status          OrderStatus `gorm:"not null"           json:"status"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	ShippingAddress string      `json:"shipping_address"`
	PaymentMethod   string      `gorm:"not null"           json:"payment_method"`
	PaymentDetails  string      `json:"payment_details,omitempty"`
	IdempotencyKey  *string     `gorm:"uniqueIndex"        json:"idempotency_key,omitempty"`
	Subtotal        float64     `gorm:"not null"           json:"subtotal"`
	Tax             float64     `gorm:"not null"           json:"tax"`
	Shipping        float64     `gorm:"not null"           json:"shipping"`
	Total           float64     `gorm:"not null"           json:"total"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem is an immutable snapshot of one cart line at checkout time.
// UnitPrice is the bike's price (or per-day rental price) when the order was
// created, so later catalog edits never change an existing order.
type OrderItem struct {
	ID         uint       `gorm:"primaryKey"                 json:"id"`
	OrderID    uint       `gorm:"index;not null"             json:"order_id"`
	BikeID     uint       `gorm:"not null"                   json:"bike_id"`
	ItemType   string     `gorm:"not null"                   json:"item_type"`
	Quantity   uint       `gorm:"default:1;check:quantity>0" json:"quantity"`
	UnitPrice  float64    `gorm:"not null"                   json:"unit_price"`
	LineTotal  float64    `gorm:"not null"                   json:"line_total"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	LocationID *uint      `json:"location_id,omitempty"`
	Bike       Bike       `gorm:"foreignKey:BikeID"          json:"bike"`
	Location   *Location  `gorm:"foreignKey:LocationID"      json:"location,omitempty"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"                                 json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_bike"         json:"user_id"`
	BikeID    uint      `gorm:"not null;uniqueIndex:idx_user_bike"         json:"bike_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `gorm:"not null"        json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}
