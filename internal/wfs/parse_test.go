package wfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capabilities200 = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:WFS_Capabilities version="2.0.0"
    xmlns:wfs="http://www.opengis.net/wfs/2.0"
    xmlns:ows="http://www.opengis.net/ows/1.1"
    xmlns:fes="http://www.opengis.net/fes/2.0"
    xmlns:xlink="http://www.w3.org/1999/xlink">
  <ows:ServiceIdentification>
    <ows:Title>Bestuurlijke Gebieden</ows:Title>
    <ows:Abstract>Municipal and provincial boundaries</ows:Abstract>
    <ows:Keywords><ows:Keyword>boundaries</ows:Keyword></ows:Keywords>
    <ows:ServiceType>WFS</ows:ServiceType>
    <ows:ServiceTypeVersion>2.0.0</ows:ServiceTypeVersion>
    <ows:Fees>NONE</ows:Fees>
    <ows:AccessConstraints>NONE</ows:AccessConstraints>
  </ows:ServiceIdentification>
  <ows:ServiceProvider>
    <ows:ProviderName>Example Kadaster</ows:ProviderName>
    <ows:ServiceContact>
      <ows:IndividualName>Service desk</ows:IndividualName>
      <ows:ContactInfo>
        <ows:Address>
          <ows:City>Apeldoorn</ows:City>
          <ows:ElectronicMailAddress>support@example.com</ows:ElectronicMailAddress>
        </ows:Address>
      </ows:ContactInfo>
    </ows:ServiceContact>
  </ows:ServiceProvider>
  <ows:OperationsMetadata>
    <ows:Operation name="GetCapabilities">
      <ows:DCP><ows:HTTP><ows:Get xlink:href="https://service.example.com/bestuurlijkegebieden/wfs"/></ows:HTTP></ows:DCP>
    </ows:Operation>
    <ows:Operation name="GetFeature">
      <ows:DCP><ows:HTTP>
        <ows:Get xlink:href="https://service.example.com/bestuurlijkegebieden/wfs?"/>
        <ows:Post xlink:href="https://service.example.com/bestuurlijkegebieden/wfs"/>
      </ows:HTTP></ows:DCP>
      <ows:Parameter name="outputFormat">
        <ows:AllowedValues>
          <ows:Value>application/gml+xml; version=3.2</ows:Value>
          <ows:Value>application/json</ows:Value>
          <ows:Value>application/geo+json; subtype=zip</ows:Value>
          <ows:Value>application/geo+json</ows:Value>
        </ows:AllowedValues>
      </ows:Parameter>
    </ows:Operation>
    <ows:Constraint name="ImplementsBasicWFS">
      <ows:NoValues/>
      <ows:DefaultValue>TRUE</ows:DefaultValue>
    </ows:Constraint>
  </ows:OperationsMetadata>
  <wfs:FeatureTypeList>
    <wfs:FeatureType>
      <wfs:Name>bg:gemeentegebied</wfs:Name>
      <wfs:Title>Gemeentegebied</wfs:Title>
      <wfs:Abstract>Municipal areas</wfs:Abstract>
      <ows:Keywords><ows:Keyword>gemeente</ows:Keyword></ows:Keywords>
      <wfs:DefaultCRS>urn:ogc:def:crs:EPSG::28992</wfs:DefaultCRS>
      <wfs:OtherCRS>urn:ogc:def:crs:EPSG::4326</wfs:OtherCRS>
      <wfs:OtherCRS>urn:ogc:def:crs:EPSG::3857</wfs:OtherCRS>
      <ows:WGS84BoundingBox>
        <ows:LowerCorner>3.2 50.75</ows:LowerCorner>
        <ows:UpperCorner>7.22 53.7</ows:UpperCorner>
      </ows:WGS84BoundingBox>
      <wfs:MetadataURL xlink:href="https://metadata.example.com/csw?id=gemeente"/>
    </wfs:FeatureType>
    <wfs:FeatureType>
      <wfs:Name>bg:grenzen_lijn</wfs:Name>
      <wfs:Title>Grenzen</wfs:Title>
      <wfs:DefaultCRS>urn:ogc:def:crs:EPSG::28992</wfs:DefaultCRS>
    </wfs:FeatureType>
  </wfs:FeatureTypeList>
  <fes:Filter_Capabilities>
    <fes:Conformance>
      <fes:Constraint name="ImplementsQuery"><ows:NoValues/><ows:DefaultValue>TRUE</ows:DefaultValue></fes:Constraint>
      <fes:Constraint name="ImplementsSorting"><ows:NoValues/><ows:DefaultValue>FALSE</ows:DefaultValue></fes:Constraint>
    </fes:Conformance>
    <fes:Id_Capabilities><fes:ResourceIdentifier name="fes:ResourceId"/></fes:Id_Capabilities>
    <fes:Scalar_Capabilities>
      <fes:LogicalOperators/>
      <fes:ComparisonOperators>
        <fes:ComparisonOperator name="PropertyIsEqualTo"/>
        <fes:ComparisonOperator name="PropertyIsLike"/>
      </fes:ComparisonOperators>
    </fes:Scalar_Capabilities>
    <fes:Spatial_Capabilities>
      <fes:GeometryOperands><fes:GeometryOperand name="gml:Envelope"/><fes:GeometryOperand name="gml:Polygon"/></fes:GeometryOperands>
      <fes:SpatialOperators><fes:SpatialOperator name="BBOX"/><fes:SpatialOperator name="Intersects"/></fes:SpatialOperators>
    </fes:Spatial_Capabilities>
    <fes:Temporal_Capabilities>
      <fes:TemporalOperands><fes:TemporalOperand name="gml:TimeInstant"/></fes:TemporalOperands>
      <fes:TemporalOperators><fes:TemporalOperator name="During"/></fes:TemporalOperators>
    </fes:Temporal_Capabilities>
    <fes:Functions>
      <fes:Function name="strToLowerCase">
        <fes:Returns>xs:string</fes:Returns>
        <fes:Arguments><fes:Argument name="str"><fes:Type>xs:string</fes:Type></fes:Argument></fes:Arguments>
      </fes:Function>
    </fes:Functions>
  </fes:Filter_Capabilities>
</wfs:WFS_Capabilities>`

const capabilities110 = `<?xml version="1.0" encoding="ISO-8859-1"?>
<WFS_Capabilities version="1.1.0" xmlns="http://www.opengis.net/wfs" xmlns:ows="http://www.opengis.net/ows" xmlns:ogc="http://www.opengis.net/ogc">
  <ows:ServiceIdentification><ows:Title>Br` + "\xfc" + `cken</ows:Title></ows:ServiceIdentification>
  <FeatureTypeList>
    <FeatureType>
      <Name>app:bridges</Name>
      <Title>Bridges</Title>
      <DefaultSRS>EPSG:28992</DefaultSRS>
      <OtherSRS>EPSG:4326</OtherSRS>
      <OutputFormats><Format>text/xml; subtype=gml/3.1.1</Format><Format>json</Format></OutputFormats>
      <ows:WGS84BoundingBox><ows:LowerCorner>4 51</ows:LowerCorner><ows:UpperCorner>5 52</ows:UpperCorner></ows:WGS84BoundingBox>
      <MetadataURL type="TC211" format="text/xml">https://metadata.example.com/bridges.xml</MetadataURL>
    </FeatureType>
  </FeatureTypeList>
  <ogc:Filter_Capabilities>
    <ogc:Spatial_Capabilities>
      <ogc:GeometryOperands><ogc:GeometryOperand>gml:Envelope</ogc:GeometryOperand></ogc:GeometryOperands>
    </ogc:Spatial_Capabilities>
    <ogc:Id_Capabilities><ogc:FID/></ogc:Id_Capabilities>
  </ogc:Filter_Capabilities>
</WFS_Capabilities>`

func TestParse(t *testing.T) {
	caps, err := Parse([]byte(capabilities200))
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", caps.Version)
	assert.Equal(t, "Bestuurlijke Gebieden", caps.ServiceIdentification.Title)
	assert.Equal(t, []string{"NONE"}, caps.ServiceIdentification.AccessConstraints)
	assert.Equal(t, "Apeldoorn", caps.ServiceProvider.ServiceContact.ContactInfo.Address.City)

	assert.Equal(t, "https://service.example.com/bestuurlijkegebieden/wfs?", caps.OperationsMetadata.GetURL("GetFeature"))
	assert.Len(t, caps.OperationsMetadata.AllowedValues("GetFeature", "outputFormat"), 4)
	require.NotEmpty(t, caps.OperationsMetadata.Constraints)
	assert.Equal(t, "ImplementsBasicWFS", caps.OperationsMetadata.Constraints[0].Name)
	assert.Equal(t, "TRUE", caps.OperationsMetadata.Constraints[0].DefaultValue)

	require.Len(t, caps.FeatureTypes, 2)
	ft := caps.FindFeatureType("bg:gemeentegebied")
	require.NotNil(t, ft)
	assert.Equal(t, "Gemeentegebied", ft.Title)
	assert.Equal(t, "urn:ogc:def:crs:EPSG::28992", ft.DefaultCRS)
	assert.Equal(t, []string{"urn:ogc:def:crs:EPSG::4326", "urn:ogc:def:crs:EPSG::3857"}, ft.OtherCRS)
	require.NotNil(t, ft.WGS84BoundingBox)
	assert.Equal(t, [2]float64{3.2, 50.75}, ft.WGS84BoundingBox.LowerCorner)
	assert.Equal(t, [2]float64{7.22, 53.7}, ft.WGS84BoundingBox.UpperCorner)
	assert.Equal(t, []string{"https://metadata.example.com/csw?id=gemeente"}, ft.MetadataURLs)
	assert.Equal(t, "Polygon", ft.GeometryType)
	assert.Equal(t, "LineString", caps.FeatureTypes[1].GeometryType)

	fc := caps.FilterCapabilities
	require.NotNil(t, fc)
	assert.Equal(t, map[string]bool{"ImplementsQuery": true, "ImplementsSorting": false}, fc.Conformance)
	assert.Equal(t, []string{"fes:ResourceId"}, fc.ResourceIDs)
	assert.True(t, fc.LogicalOperators)
	assert.Equal(t, []string{"PropertyIsEqualTo", "PropertyIsLike"}, fc.ComparisonOps)
	assert.Equal(t, []string{"gml:Envelope", "gml:Polygon"}, fc.GeometryOperands)
	assert.Equal(t, []string{"BBOX", "Intersects"}, fc.SpatialOperators)
	assert.Equal(t, []string{"gml:TimeInstant"}, fc.TemporalOperands)
	assert.Equal(t, []string{"During"}, fc.TemporalOperators)
	require.Len(t, fc.Functions, 1)
	assert.Equal(t, Function{Name: "strToLowerCase", Returns: "xs:string", Arguments: []Argument{{Name: "str", Type: "xs:string"}}}, fc.Functions[0])
}

func TestParseWFS110(t *testing.T) {
	caps, err := Parse([]byte(capabilities110))
	require.NoError(t, err)

	assert.Equal(t, "1.1.0", caps.Version)
	assert.Equal(t, "Brücken", caps.ServiceIdentification.Title)
	require.Len(t, caps.FeatureTypes, 1)
	ft := caps.FeatureTypes[0]
	assert.Equal(t, "EPSG:28992", ft.DefaultCRS)
	assert.Equal(t, []string{"EPSG:4326"}, ft.OtherCRS)
	assert.Equal(t, []string{"text/xml; subtype=gml/3.1.1", "json"}, ft.OutputFormats)
	assert.Equal(t, []string{"https://metadata.example.com/bridges.xml"}, ft.MetadataURLs)
	assert.Equal(t, "json", SelectOutputFormat(caps.GetFeatureOutputFormats(&ft)))
	assert.Equal(t, []string{"gml:Envelope"}, caps.FilterCapabilities.GeometryOperands)
	assert.Equal(t, []string{"FID"}, caps.FilterCapabilities.ResourceIDs)
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"wrong root": `<WMS_Capabilities version="1.3.0"/>`,
		"exception":  `<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/1.1"><ows:Exception><ows:ExceptionText>no such service</ows:ExceptionText></ows:Exception></ows:ExceptionReport>`,
		"empty":      ``,
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}
