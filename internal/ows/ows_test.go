package ows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delta10/ows-discovery/internal/xmlwalk"
)

const capabilities = `<?xml version="1.0" encoding="UTF-8"?>
<Capabilities xmlns="http://www.opengis.net/wmts/1.0" xmlns:ows="http://www.opengis.net/ows/1.1" xmlns:xlink="http://www.w3.org/1999/xlink">
  <ows:ServiceIdentification>
    <ows:Title>Basisregistratie Topografie</ows:Title>
    <ows:Abstract> Topographic base map </ows:Abstract>
    <ows:Keywords><ows:Keyword>topografie</ows:Keyword><ows:Keyword>brt</ows:Keyword></ows:Keywords>
    <ows:ServiceType>OGC WMTS</ows:ServiceType>
    <ows:ServiceTypeVersion>1.0.0</ows:ServiceTypeVersion>
    <ows:Fees>NONE</ows:Fees>
    <ows:AccessConstraints>NONE</ows:AccessConstraints>
  </ows:ServiceIdentification>
  <ows:ServiceProvider>
    <ows:ProviderName>Kadaster</ows:ProviderName>
    <ows:ProviderSite xlink:href="https://www.kadaster.nl"/>
    <ows:ServiceContact>
      <ows:IndividualName>KlantContactCenter</ows:IndividualName>
      <ows:ContactInfo>
        <ows:Phone><ows:Voice>088-1831000</ows:Voice></ows:Phone>
        <ows:Address>
          <ows:City>Apeldoorn</ows:City>
          <ows:Country>Nederland</ows:Country>
          <ows:ElectronicMailAddress>info@example.nl</ows:ElectronicMailAddress>
        </ows:Address>
        <ows:OnlineResource xlink:href="https://www.kadaster.nl/contact"/>
      </ows:ContactInfo>
      <ows:Role>pointOfContact</ows:Role>
    </ows:ServiceContact>
  </ows:ServiceProvider>
  <ows:OperationsMetadata>
    <ows:Operation name="GetCapabilities">
      <ows:DCP><ows:HTTP>
        <ows:Get xlink:href="https://service.example.nl/wmts?">
          <ows:Constraint name="GetEncoding"><ows:AllowedValues><ows:Value>KVP</ows:Value></ows:AllowedValues></ows:Constraint>
        </ows:Get>
      </ows:HTTP></ows:DCP>
    </ows:Operation>
    <ows:Operation name="GetTile">
      <ows:DCP><ows:HTTP>
        <ows:Get xlink:href="https://service.example.nl/wmts/tile?"/>
        <ows:Get xlink:href="https://mirror.example.nl/wmts/tile?"/>
        <ows:Post xlink:href="https://service.example.nl/wmts/post"/>
      </ows:HTTP></ows:DCP>
      <ows:Parameter name="Format"><ows:AllowedValues><ows:Value>image/png</ows:Value></ows:AllowedValues></ows:Parameter>
    </ows:Operation>
    <ows:Parameter name="version"><ows:Value>1.0.0</ows:Value><ows:DefaultValue>1.0.0</ows:DefaultValue></ows:Parameter>
    <ows:Constraint name="ImplementsPaging"><ows:NoValues/><ows:DefaultValue>TRUE</ows:DefaultValue></ows:Constraint>
  </ows:OperationsMetadata>
</Capabilities>`

func parse(t *testing.T) (ServiceIdentification, ServiceProvider, OperationsMetadata) {
	t.Helper()
	root, err := xmlwalk.Parse([]byte(capabilities))
	require.NoError(t, err)
	return ParseServiceIdentification(xmlwalk.Child(root, "ServiceIdentification")),
		ParseServiceProvider(xmlwalk.Child(root, "ServiceProvider")),
		ParseOperationsMetadata(xmlwalk.Child(root, "OperationsMetadata"))
}

func TestParseServiceIdentification(t *testing.T) {
	si, _, _ := parse(t)
	assert.Equal(t, ServiceIdentification{
		Title:              "Basisregistratie Topografie",
		Abstract:           "Topographic base map",
		Keywords:           []string{"topografie", "brt"},
		ServiceType:        "OGC WMTS",
		ServiceTypeVersion: []string{"1.0.0"},
		Fees:               "NONE",
		AccessConstraints:  []string{"NONE"},
	}, si)
}

func TestParseServiceProvider(t *testing.T) {
	_, sp, _ := parse(t)
	assert.Equal(t, "Kadaster", sp.ProviderName)
	assert.Equal(t, "https://www.kadaster.nl", sp.ProviderSite)

	contact := sp.ServiceContact
	assert.Equal(t, "KlantContactCenter", contact.IndividualName)
	assert.Equal(t, "pointOfContact", contact.Role)
	assert.Equal(t, "088-1831000", contact.ContactInfo.Voice)
	assert.Equal(t, "Apeldoorn", contact.ContactInfo.Address.City)
	assert.Equal(t, "info@example.nl", contact.ContactInfo.Address.ElectronicMailAddress)
	assert.Equal(t, "https://www.kadaster.nl/contact", contact.ContactInfo.OnlineResource)
}

func TestParseOperationsMetadata(t *testing.T) {
	_, _, om := parse(t)
	require.Len(t, om.Operations, 2)

	assert.Equal(t, "https://service.example.nl/wmts?", om.GetURL("getcapabilities"))
	assert.Equal(t, "https://service.example.nl/wmts/tile?", om.GetURL("GetTile"))
	assert.Empty(t, om.GetURL("GetFeatureInfo"))

	tile := om.Operation("GetTile")
	require.NotNil(t, tile)
	assert.Len(t, tile.Get, 2)
	assert.Equal(t, []string{"https://service.example.nl/wmts/post"}, tile.Post)

	assert.Equal(t, []string{"image/png"}, om.AllowedValues("GetTile", "format"))
	// Falls back to the service wide parameter.
	assert.Equal(t, []string{"1.0.0"}, om.AllowedValues("GetTile", "version"))
	assert.Nil(t, om.AllowedValues("GetTile", "style"))

	paging := findDomain(om.Constraints, "implementspaging")
	require.NotNil(t, paging)
	assert.True(t, paging.NoValues)
	assert.Equal(t, "TRUE", paging.DefaultValue)
	assert.Nil(t, findDomain(om.Constraints, "ImplementsSorting"))
}

func TestParseBoundingBox(t *testing.T) {
	root, err := xmlwalk.Parse([]byte(`<Layer xmlns:ows="http://www.opengis.net/ows/1.1">
  <ows:WGS84BoundingBox><ows:LowerCorner>3.2 50.7</ows:LowerCorner><ows:UpperCorner>7.3 53.6</ows:UpperCorner></ows:WGS84BoundingBox>
  <ows:BoundingBox crs="EPSG:28992"><ows:LowerCorner>-285401.92 22598.08</ows:LowerCorner><ows:UpperCorner>595401.92 903401.92</ows:UpperCorner></ows:BoundingBox>
  <ows:BoundingBox><ows:LowerCorner>1 2</ows:LowerCorner></ows:BoundingBox>
</Layer>`))
	require.NoError(t, err)

	boxes := root.ChildElements()
	require.Len(t, boxes, 3)

	wgs84, ok := ParseBoundingBox(boxes[0])
	require.True(t, ok)
	assert.Equal(t, &BoundingBox{CRS: "urn:ogc:def:crs:OGC:2:84", LowerCorner: [2]float64{3.2, 50.7}, UpperCorner: [2]float64{7.3, 53.6}}, wgs84)

	rd, ok := ParseBoundingBox(boxes[1])
	require.True(t, ok)
	assert.Equal(t, "EPSG:28992", rd.CRS)
	assert.Equal(t, [2]float64{595401.92, 903401.92}, rd.UpperCorner)

	_, ok = ParseBoundingBox(boxes[2])
	assert.False(t, ok)
}
