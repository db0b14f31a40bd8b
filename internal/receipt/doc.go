// Package receipt resolves fiscal receipt QR codes into line items.
//
// A receipt QR code encodes a query string such as
//
//	t=20240101T1200&s=150.00&fn=9999078900004312&i=1234&fp=2345678901&n=1
//
// Decoder turns a photo into that text; Client asks the receipt verification service
// for the purchased items.
package receipt
