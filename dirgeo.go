// Package dirgeo provides two offline batch utilities: a directory scraper
// that enriches a CSV of business names with a category label, and a
// resumable geocoder that turns street addresses into coordinates.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, arcgis/, fs/).
package dirgeo
