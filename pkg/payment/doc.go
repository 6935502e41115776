// Package payment relays PayPal order create, capture, and status calls.
//
// The relay holds no copy of an order. It obtains an OAuth access token
// with the client-credentials grant, caches it until a minute before it
// expires, and forwards one call per request to the Orders v2 API:
//
//	POST /api/paypal/create-order  {amount, currency?, description?} -> {orderID, status}
//	POST /api/paypal/capture-order {orderID} -> {success, transactionID, amount}
//	POST /api/paypal/check-status  {orderID} -> {orderID, status, amount?, transactionID?}
//
// A capture that does not reach COMPLETED is answered with 400 "Payment not
// completed". Captures are never retried; each attempt carries a fresh
// PayPal-Request-Id.
package payment
