// Package market provides the HTTP client and wire types for the
// trading-card marketplace backend.
//
// # Overview
//
// Every request the application makes goes through Client. The backend is an
// opaque JSON service; this package only knows its endpoints and payload
// shapes. The state machines above it (session, collection, cart, notify,
// shop) depend on the narrow per-resource interfaces rather than on *Client,
// so tests can substitute fakes.
//
// # Endpoints
//
//	GET    /api/v1/cards/catalog                  FetchCatalog
//	GET    /api/v1/marketplace/listings           FetchListings
//	POST   /api/v1/marketplace/checkout           Checkout
//	POST   /api/v1/auth/login                     Login
//	POST   /api/v1/auth/register                  Register
//	POST   /api/v1/auth/change-password           ChangePassword
//	DELETE /api/v1/users/{id}?admin_id=           DeleteUser
//	GET    /api/v1/cart/{userId}                  FetchCart
//	POST   /api/v1/cart/add                       AddToCart
//	POST   /api/v1/cart/remove                    RemoveFromCart
//	GET    /api/v1/collection/{userId}            FetchCollection
//	POST   /api/v1/collection/add-or-update       AddOrUpdateCollection
//	POST   /api/v1/collection/remove-quantity     RemoveCollectionQuantity
//	POST   /api/v1/collection/update-card         UpdateCollectionCard
//	POST   /api/v1/collection/toggle-favorite     ToggleCollectionFavorite
//	GET    /api/v1/user/notifications?user_id=    FetchNotifications
//
// # Errors
//
// Failures fall into two classes:
//
//   - *TransportError: no response was received (dial failure, timeout,
//     cancelled context).
//   - *StatusError: the server answered outside 2xx. Message carries the
//     body's "message" or "error" field.
//
// IsTransport, IsRejected, StatusCode and RejectionMessage classify an error
// without type assertions at the call site. A 2xx body that does not decode
// wraps ErrMalformedResponse.
//
// The client never retries and never queues writes.
//
// # Prices
//
// Prices are Price values: a decimal.Decimal that travels as a plain JSON
// number.
package market
