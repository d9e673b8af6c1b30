package geometry

import (
	"encoding/xml"
	"fmt"
	"os"
)

// xmlGeometry mirrors the per-view geometry description file. The reader is
// a minimal stand-in for the external geometry XML reader named in the
// reconstruction spec; its only job here is to make the CLIs runnable
// without a second external tool.
type xmlGeometry struct {
	XMLName xml.Name   `xml:"geometry"`
	Views   []xmlView  `xml:"view"`
}

type xmlView struct {
	Angle              float64 `xml:"angle"`
	SID                float64 `xml:"sourceToIsocenterDistance"`
	SDD                float64 `xml:"sourceToDetectorDistance"`
	SourceOffsetX      float64 `xml:"sourceOffsetX"`
	SourceOffsetY      float64 `xml:"sourceOffsetY"`
	ProjectionOffsetX  float64 `xml:"projectionOffsetX"`
	ProjectionOffsetY  float64 `xml:"projectionOffsetY"`
	InPlaneRotation    float64 `xml:"inPlaneAngle"`
	OutOfPlaneRotation float64 `xml:"outOfPlaneAngle"`
}

// LoadXML reads a geometry description from path and builds a Geometry.
func LoadXML(path string) (*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geometry: read %q: %w", path, err)
	}

	var doc xmlGeometry
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("geometry: parse %q: %w", path, err)
	}
	if len(doc.Views) == 0 {
		return nil, fmt.Errorf("geometry: %q contains no <view> entries", path)
	}

	views := make([]View, len(doc.Views))
	for i, v := range doc.Views {
		views[i] = View{
			Angle:              v.Angle,
			SourceToIso:        v.SID,
			SourceToDetector:   v.SDD,
			SourceOffsetX:      v.SourceOffsetX,
			SourceOffsetY:      v.SourceOffsetY,
			ProjectionOffsetX:  v.ProjectionOffsetX,
			ProjectionOffsetY:  v.ProjectionOffsetY,
			InPlaneRotation:    v.InPlaneRotation,
			OutOfPlaneRotation: v.OutOfPlaneRotation,
		}
	}
	return New(views), nil
}
