package empire

import "encoding/json"

// socketMetadata is the short-lived credential set required to open and
// identify a trading socket. Issued by the metadata endpoint.
type socketMetadata struct {
	User            json.RawMessage `json:"user"`
	UserID          int64           `json:"-"`
	SocketToken     string          `json:"socket_token"`
	SocketSignature string          `json:"socket_signature"`
}

// wsFrame is the outer envelope of every socket message: an event name plus
// an event-specific payload.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// identifyPayload is sent once per connection to bind the socket to the
// authenticated user.
type identifyPayload struct {
	UID                int64           `json:"uid"`
	Model              json.RawMessage `json:"model"`
	AuthorizationToken string          `json:"authorizationToken"`
	Signature          string          `json:"signature"`
	UUID               string          `json:"uuid"`
}

// initData is the payload of the "init" event the server emits after
// evaluating an identify frame.
type initData struct {
	Authenticated bool `json:"authenticated"`
}

// filtersPayload scopes the item feed server-side.
type filtersPayload struct {
	PriceMax float64 `json:"price_max"`
}

// itemPayload is one marketplace listing as carried by the new_item,
// updated_item and deleted_item events. PurchasePrice is in coin cents.
type itemPayload struct {
	ID            int64   `json:"id"`
	MarketName    string  `json:"market_name"`
	MarketValue   float64 `json:"market_value"`
	PurchasePrice float64 `json:"purchase_price"`
}

// coins converts the coin-cent wire price into whole coins.
func (p itemPayload) coins() float64 {
	return p.PurchasePrice / 100.0
}
