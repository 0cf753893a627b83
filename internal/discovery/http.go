package discovery

import (
	"context"
	"encoding/xml"
	"net/http"

	"github.com/pkg/errors"
)

// discoveryDocument mirrors the XML shape implied by
// original_source/csrc/Source/Discovery/DiscoveryXMLHandler.cpp: a flat
// list of <service> elements, each naming its user-manager class and
// host/port, with zero or more <property> children.
type discoveryDocument struct {
	XMLName  xml.Name           `xml:"discoveryResponse"`
	Services []discoveryService `xml:"service"`
}

type discoveryService struct {
	ClassName  string               `xml:"className,attr"`
	Host       string               `xml:"host,attr"`
	Port       int                  `xml:"port,attr"`
	Properties []discoveryProperty  `xml:"property"`
}

type discoveryProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// HTTPDiscoverer fetches and parses a discovery document over HTTP. Real
// XML-over-HTTP discovery is explicitly out of scope for the core (spec
// §1 non-goals); this exists so an application has a concrete Client to
// reach for instead of hand-rolling one, not because the core depends on
// it.
type HTTPDiscoverer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPDiscoverer returns a discoverer querying baseURL + "?game=<name>".
func NewHTTPDiscoverer(baseURL string) *HTTPDiscoverer {
	return &HTTPDiscoverer{BaseURL: baseURL, HTTPClient: http.DefaultClient}
}

// Resolve implements Client by fetching and parsing the discovery
// document, filtering nothing itself — callers narrow the result with
// Select.
func (h *HTTPDiscoverer) Resolve(ctx context.Context, gameName string) ([]Endpoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+"?game="+gameName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "discovery: building request")
	}
	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "discovery: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("discovery: unexpected status %s", resp.Status)
	}

	var doc discoveryDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "discovery: decoding response")
	}

	endpoints := make([]Endpoint, 0, len(doc.Services))
	for _, svc := range doc.Services {
		params := make(map[string]string, len(svc.Properties))
		for _, p := range svc.Properties {
			params[p.Name] = p.Value
		}
		endpoints = append(endpoints, Endpoint{
			ClassName: svc.ClassName,
			Host:      svc.Host,
			Port:      svc.Port,
			Params:    params,
		})
	}
	return endpoints, nil
}
