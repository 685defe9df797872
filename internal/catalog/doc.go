// Package catalog resolves endpoint permalinks against an OpenAPI document.
// A permalink has the form $e/<tag>/<operationId>, with the tag and
// operation ID URL-escaped
package catalog
