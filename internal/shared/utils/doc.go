// Package utils holds input validators and content hashing shared by the
// catalog, kernel and inspector API.
package utils
