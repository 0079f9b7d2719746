// Package convert rasterizes source documents into one image per page.
package convert
