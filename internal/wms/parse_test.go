package wms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capabilities130 = `<?xml version="1.0" encoding="UTF-8"?>
<WMS_Capabilities version="1.3.0" xmlns="http://www.opengis.net/wms" xmlns:xlink="http://www.w3.org/1999/xlink">
  <Service>
    <Name>WMS</Name>
    <Title>Basisregistratie Topografie</Title>
    <Abstract>Topographic base map</Abstract>
    <KeywordList><Keyword>topography</Keyword><Keyword>roads</Keyword></KeywordList>
    <OnlineResource xlink:type="simple" xlink:href="https://maps.example.com/wms"/>
    <ContactInformation>
      <ContactPersonPrimary>
        <ContactPerson>GIS desk</ContactPerson>
        <ContactOrganization>Example municipality</ContactOrganization>
      </ContactPersonPrimary>
      <ContactElectronicMailAddress>gis@example.com</ContactElectronicMailAddress>
    </ContactInformation>
    <Fees>none</Fees>
    <AccessConstraints>none</AccessConstraints>
    <MaxWidth>4096</MaxWidth>
  </Service>
  <Capability>
    <Request>
      <GetCapabilities>
        <Format>text/xml</Format>
        <DCPType><HTTP><Get><OnlineResource xlink:href="https://maps.example.com/wms?"/></Get></HTTP></DCPType>
      </GetCapabilities>
      <GetMap>
        <Format>image/png</Format>
        <Format>image/jpeg</Format>
        <DCPType><HTTP><Get><OnlineResource xlink:href="https://maps.example.com/wms?"/></Get></HTTP></DCPType>
      </GetMap>
    </Request>
    <Exception><Format>XML</Format></Exception>
    <Layer>
      <Title>Root</Title>
      <CRS>EPSG:4326</CRS>
      <CRS>EPSG:3857</CRS>
      <EX_GeographicBoundingBox>
        <westBoundLongitude>3.2</westBoundLongitude>
        <eastBoundLongitude>7.3</eastBoundLongitude>
        <southBoundLatitude>50.7</southBoundLatitude>
        <northBoundLatitude>53.6</northBoundLatitude>
      </EX_GeographicBoundingBox>
      <BoundingBox CRS="EPSG:3857" minx="356000" miny="6570000" maxx="812000" maxy="7100000"/>
      <Attribution><Title>Example municipality</Title></Attribution>
      <MetadataURL type="ISO19115:2003"><Format>text/xml</Format><OnlineResource xlink:href="https://example.com/csw/root"/></MetadataURL>
      <Style><Name>default</Name><Title>Default</Title></Style>
      <Layer queryable="1">
        <Name>roads</Name>
        <Title>Roads</Title>
        <Style>
          <Name>highways</Name>
          <LegendURL width="20" height="20">
            <Format>image/png</Format>
            <OnlineResource xlink:href="https://maps.example.com/legend?layer=roads"/>
          </LegendURL>
        </Style>
      </Layer>
      <Layer>
        <Name>rivers</Name>
        <Title>Rivers</Title>
        <CRS>EPSG:28992</CRS>
        <EX_GeographicBoundingBox>
          <westBoundLongitude>4</westBoundLongitude>
          <eastBoundLongitude>6</eastBoundLongitude>
          <southBoundLatitude>51</southBoundLatitude>
          <northBoundLatitude>52</northBoundLatitude>
        </EX_GeographicBoundingBox>
        <Attribution><Title>Water board</Title></Attribution>
        <Layer opaque="1">
          <Name>rivers_small</Name>
          <Title>Small rivers</Title>
        </Layer>
      </Layer>
      <Layer>
        <Title>Cadastre</Title>
        <Layer>
          <Name>parcels</Name>
          <Title>Parcels</Title>
          <MinScaleDenominator>100</MinScaleDenominator>
          <MaxScaleDenominator>5000</MaxScaleDenominator>
        </Layer>
      </Layer>
    </Layer>
  </Capability>
</WMS_Capabilities>`

const capabilities111 = `<?xml version="1.0" encoding="UTF-8"?>
<WMT_MS_Capabilities version="1.1.1">
  <Service><Name>OGC:WMS</Name><Title>Legacy</Title></Service>
  <Capability>
    <Request><GetMap><Format>image/png</Format></GetMap></Request>
    <Layer>
      <Title>Legacy root</Title>
      <SRS>EPSG:4326 EPSG:900913</SRS>
      <LatLonBoundingBox minx="-10" miny="40" maxx="10" maxy="60"/>
      <Layer>
        <Name>hinted</Name>
        <Title>Hinted</Title>
        <Dimension name="time" units="ISO8601"/>
        <Extent name="time" default="2024-01-01">2023-01-01/2024-01-01/P1D</Extent>
        <ScaleHint min="0.002" max="0.01"/>
      </Layer>
      <Layer>
        <Name>plain</Name>
        <Title>Plain</Title>
      </Layer>
    </Layer>
  </Capability>
</WMT_MS_Capabilities>`

func TestParseService(t *testing.T) {
	caps, err := Parse([]byte(capabilities130))
	require.NoError(t, err)

	assert.Equal(t, "1.3.0", caps.Version)
	assert.Equal(t, "Basisregistratie Topografie", caps.Service.Title)
	assert.Equal(t, []string{"topography", "roads"}, caps.Service.Keywords)
	assert.Equal(t, "https://maps.example.com/wms", caps.Service.OnlineResource)
	require.NotNil(t, caps.Service.ContactInformation)
	assert.Equal(t, "Example municipality", caps.Service.ContactInformation.ContactOrganization)
	assert.Equal(t, 4096, caps.Service.MaxWidth)

	assert.Equal(t, []string{"image/png", "image/jpeg"}, caps.Capability.Request["GetMap"].Formats)
	assert.Equal(t, "https://maps.example.com/wms?", caps.GetMapURL())
	assert.Equal(t, []string{"XML"}, caps.Capability.Exception)
}

func TestParseNamedLayerCount(t *testing.T) {
	caps, err := Parse([]byte(capabilities130))
	require.NoError(t, err)

	var names []string
	for _, l := range caps.NamedLayers() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"roads", "rivers", "rivers_small", "parcels"}, names)
	assert.Equal(t, strings.Count(capabilities130, "<Name>")-3, len(names), "layer names exclude service and style names")
}

func TestParseInheritance(t *testing.T) {
	caps, err := Parse([]byte(capabilities130))
	require.NoError(t, err)

	roads := caps.FindLayer("roads")
	require.NotNil(t, roads)
	assert.True(t, roads.Queryable)
	assert.Equal(t, []string{"EPSG:4326", "EPSG:3857"}, roads.CRS)
	require.NotNil(t, roads.EXGeographicBoundingBox)
	assert.Equal(t, 3.2, roads.EXGeographicBoundingBox.WestBoundLongitude)
	require.Len(t, roads.BoundingBoxes, 1)
	assert.Equal(t, "EPSG:3857", roads.BoundingBoxes[0].CRS)
	require.NotNil(t, roads.Attribution)
	assert.Equal(t, "Example municipality", roads.Attribution.Title)
	require.Len(t, roads.MetadataURLs, 1)
	assert.Equal(t, "https://example.com/csw/root", roads.MetadataURLs[0].OnlineResource)

	var styleNames []string
	for _, s := range roads.Styles {
		styleNames = append(styleNames, s.Name)
	}
	assert.Equal(t, []string{"highways", "default"}, styleNames)

	rivers := caps.FindLayer("rivers")
	require.NotNil(t, rivers)
	assert.Equal(t, []string{"EPSG:28992", "EPSG:4326", "EPSG:3857"}, rivers.CRS)
	assert.Equal(t, 4.0, rivers.EXGeographicBoundingBox.WestBoundLongitude)
	assert.Equal(t, "Water board", rivers.Attribution.Title)

	small := caps.FindLayer("rivers_small")
	require.NotNil(t, small)
	assert.Equal(t, rivers.CRS, small.CRS)
	assert.Equal(t, 4.0, small.EXGeographicBoundingBox.WestBoundLongitude)
	assert.Equal(t, "Water board", small.Attribution.Title)
	assert.True(t, small.Opaque)
	assert.False(t, small.Queryable)

	parcels := caps.FindLayer("parcels")
	require.NotNil(t, parcels)
	require.NotNil(t, parcels.MinScaleDenominator)
	assert.Equal(t, 100.0, *parcels.MinScaleDenominator)
	assert.Equal(t, 5000.0, *parcels.MaxScaleDenominator)
}

func TestParseLegendURL(t *testing.T) {
	caps, err := Parse([]byte(capabilities130))
	require.NoError(t, err)

	roads := caps.FindLayer("roads")
	require.NotEmpty(t, roads.Styles[0].LegendURLs)
	legend := roads.Styles[0].LegendURLs[0]
	assert.Equal(t, "https://maps.example.com/legend?layer=roads", legend.OnlineResource)
	assert.Equal(t, "https://maps.example.com/legend?format=image%2Fpng&height=20&layer=roads&width=20", legend.URL)
}

func TestBuildLegendURLKeepsExistingParams(t *testing.T) {
	href := "https://maps.example.com/wms?REQUEST=GetLegendGraphic&WIDTH=40"
	got := BuildLegendURL(href, "image/png", 20, 0)
	assert.Contains(t, got, "WIDTH=40")
	assert.NotContains(t, got, "width=20")
	assert.Contains(t, got, "format=image%2Fpng")

	assert.Equal(t, "https://example.com/legend.png", BuildLegendURL("https://example.com/legend.png", "", 0, 0))
	assert.Equal(t, "", BuildLegendURL("", "image/png", 10, 10))
}

func TestParseLegacyScaleHint(t *testing.T) {
	caps, err := Parse([]byte(capabilities111))
	require.NoError(t, err)
	assert.Equal(t, "1.1.1", caps.Version)

	hinted := caps.FindLayer("hinted")
	require.NotNil(t, hinted)
	require.NotNil(t, hinted.MinScaleDenominator)
	require.NotNil(t, hinted.MaxScaleDenominator)
	assert.InDelta(t, 100, *hinted.MinScaleDenominator, 1e-9)
	assert.InDelta(t, 500, *hinted.MaxScaleDenominator, 1e-9)
	assert.Equal(t, []string{"EPSG:4326", "EPSG:900913"}, hinted.CRS)
	require.NotNil(t, hinted.EXGeographicBoundingBox)
	assert.Equal(t, 60.0, hinted.EXGeographicBoundingBox.NorthBoundLatitude)
	require.Len(t, hinted.Dimensions, 1)
	assert.Equal(t, "2024-01-01", hinted.Dimensions[0].Default)
	assert.Equal(t, "2023-01-01/2024-01-01/P1D", hinted.Dimensions[0].Values)

	plain := caps.FindLayer("plain")
	require.NotNil(t, plain)
	assert.Nil(t, plain.MinScaleDenominator)
	assert.Nil(t, plain.MaxScaleDenominator)
}

func TestScaleHintToDenominators(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	minScale, maxScale := ScaleHintToDenominators(f(0.002), f(0.01))
	assert.InDelta(t, 100, *minScale, 1e-9)
	assert.InDelta(t, 500, *maxScale, 1e-9)

	minScale, maxScale = ScaleHintToDenominators(f(0), f(0.01))
	assert.InDelta(t, 100, *minScale, 1e-9)
	assert.Nil(t, maxScale)

	minScale, maxScale = ScaleHintToDenominators(nil, nil)
	assert.Nil(t, minScale)
	assert.Nil(t, maxScale)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`<ServiceExceptionReport><ServiceException>Layer not defined</ServiceException></ServiceExceptionReport>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Layer not defined")

	_, err = Parse([]byte(`<Capabilities version="1.0.0"><Contents/></Capabilities>`))
	assert.Error(t, err)

	_, err = Parse([]byte(`<WMS_Capabilities version="1.3.0"><Service/></WMS_Capabilities>`))
	assert.Error(t, err)
}
