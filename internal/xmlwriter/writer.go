// =============================================================================
// Trip Dashboard - KML Writer Module
// =============================================================================
//
// This module writes the committed map view of a day as a KML document, so
// the routes can be opened in Google Earth or any GIS tool alongside the
// GeoJSON output.
//
// KML STRUCTURE:
//
//   <kml xmlns="http://www.opengis.net/kml/2.2">
//     <Document>
//       <name>Mon, Jan 15, 2024</name>
//       <description>Showing 2 of 3 trip route(s) ...</description>
//       <Placemark>                          <!-- One per plotted route -->
//         <name>#1 9:05 AM</name>
//         <description>Pickup → Drop-off · €12.50</description>
//         <ExtendedData>
//           <Data name="tripId"><value>4</value></Data>
//         </ExtendedData>
//         <LineString>
//           <coordinates>lon,lat,0 lon,lat,0</coordinates>
//         </LineString>
//       </Placemark>
//     </Document>
//   </kml>
//
// Route numbers are the trip's position in the day, so unplotted trips leave
// gaps in the numbering just like the dashboard's table.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/ginjaninja78/trip-dashboard/internal/dashboard"
	"github.com/ginjaninja78/trip-dashboard/internal/format"
)

// KMLNamespace is the OGC KML 2.2 namespace.
const KMLNamespace = "http://www.opengis.net/kml/2.2"

// ContentType is the media type of a KML document.
const ContentType = "application/vnd.google-earth.kml+xml"

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for KML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// IncludeLabels adds a Point placemark at each route midpoint carrying
	// the route number.
	// Default: false
	IncludeLabels bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
	}
}

// =============================================================================
// KML GENERATION FUNCTIONS
// =============================================================================

// Generate creates a KML document from a map view with the default options.
func Generate(view *dashboard.MapView) ([]byte, error) {
	return GenerateWithOptions(view, DefaultGenerateOptions())
}

// GenerateWithOptions creates a KML document with custom options.
//
// PARAMETERS:
//   - view: The committed map view of one day.
//   - options: Formatting options.
//
// RETURNS:
//   - The KML document as a byte slice.
//   - An error if the view is nil.
func GenerateWithOptions(view *dashboard.MapView, options GenerateOptions) ([]byte, error) {
	if view == nil {
		return nil, fmt.Errorf("no map view to write")
	}

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	root := Element{
		Name:       "kml",
		Attributes: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: KMLNamespace}},
		Children:   []Element{buildDocument(view, options)},
	}
	writeElement(&buffer, root, options.Indent, 0)

	return buffer.Bytes(), nil
}

// Write generates the KML document for view and writes it to w.
func Write(w io.Writer, view *dashboard.MapView) error {
	data, err := Generate(view)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// =============================================================================
// DOCUMENT BUILDING
// =============================================================================

// Element is a generic XML element. An element has either a text value or
// children, never both.
type Element struct {
	Name       string
	Attributes []xml.Attr
	Value      string
	Children   []Element
}

func buildDocument(view *dashboard.MapView, options GenerateOptions) Element {
	doc := Element{
		Name: "Document",
		Children: []Element{
			textElement("name", view.Label),
			textElement("description", view.Status),
		},
	}

	for _, route := range view.Routes {
		doc.Children = append(doc.Children, buildRoutePlacemark(route))
		if options.IncludeLabels {
			doc.Children = append(doc.Children, buildLabelPlacemark(route))
		}
	}
	return doc
}

// buildRoutePlacemark creates the LineString placemark of one route.
func buildRoutePlacemark(route dashboard.Route) Element {
	return Element{
		Name: "Placemark",
		Children: []Element{
			textElement("name", fmt.Sprintf("#%d %s", route.Number, route.Time)),
			textElement("description", fmt.Sprintf("%s → %s · %s", route.Pickup, route.Dropoff, format.EUR(route.TotalEUR))),
			{
				Name: "ExtendedData",
				Children: []Element{
					dataElement("tripId", strconv.Itoa(route.TripID)),
					dataElement("service", route.Service),
					dataElement("pickupGeohash", route.From.Geohash),
					dataElement("dropoffGeohash", route.To.Geohash),
				},
			},
			{
				Name: "LineString",
				Children: []Element{
					textElement("coordinates", coordinate(route.From.Lon, route.From.Lat)+" "+coordinate(route.To.Lon, route.To.Lat)),
				},
			},
		},
	}
}

// buildLabelPlacemark creates the midpoint Point carrying the route number.
func buildLabelPlacemark(route dashboard.Route) Element {
	return Element{
		Name: "Placemark",
		Children: []Element{
			textElement("name", strconv.Itoa(route.Number)),
			{
				Name:     "Point",
				Children: []Element{textElement("coordinates", coordinate(route.Midpoint.Lon, route.Midpoint.Lat))},
			},
		},
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func textElement(name, value string) Element {
	return Element{Name: name, Value: value}
}

func dataElement(name, value string) Element {
	return Element{
		Name:       "Data",
		Attributes: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: name}},
		Children:   []Element{textElement("value", value)},
	}
}

// coordinate formats a KML "lon,lat,alt" tuple.
func coordinate(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64) + ",0"
}

// writeElement writes an element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element Element, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.Name)
	for _, attr := range element.Attributes {
		buffer.WriteString(" ")
		buffer.WriteString(attr.Name.Local)
		buffer.WriteString(`="`)
		xml.EscapeText(buffer, []byte(attr.Value))
		buffer.WriteString(`"`)
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}
	buffer.WriteString(">")

	if len(element.Children) == 0 {
		xml.EscapeText(buffer, []byte(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.Name)
	buffer.WriteString(">\n")
}
