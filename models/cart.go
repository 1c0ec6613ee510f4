package models

// CartLineItem is one product-and-quantity entry in a session cart.
// It lives inside the session document, so it carries bson tags
// alongside the json wire tags. The productId is the identity key:
// a cart never holds two lines for the same product.
type CartLineItem struct {
	ProductID    string  `json:"productId" bson:"product_id"`
	Quantity     int     `json:"quantity" bson:"quantity"`
	ProductName  string  `json:"productName" bson:"product_name"`
	ProductPrice float64 `json:"productPrice" bson:"product_price"`
	ProductImage *string `json:"productImage" bson:"product_image"`
}
