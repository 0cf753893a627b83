package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func xmlHandler() http.HandlerFunc {
	const body = `<discoveryResponse>
  <service className="TCPIPUserManager" host="game.example.com" port="5000">
    <property name="region" value="us-west"/>
  </service>
</discoveryResponse>`
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(body))
	}
}

func TestStaticResolve(t *testing.T) {
	want := []Endpoint{{ClassName: "TCPIPUserManager", Host: "localhost", Port: 1234}}
	s := NewStatic(want...)
	got, err := s.Resolve(context.Background(), "anygame")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || !reflect.DeepEqual(got[0], want[0]) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSelectFiltersByClassName(t *testing.T) {
	endpoints := []Endpoint{
		{ClassName: "TCPIPUserManager", Host: "a", Port: 1},
		{ClassName: "OtherManager", Host: "b", Port: 2},
	}
	got, err := Select(endpoints, "TCPIPUserManager", nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.Host != "a" {
		t.Fatalf("got %+v, want host a", got)
	}
}

func TestSelectNoMatchingEndpoint(t *testing.T) {
	endpoints := []Endpoint{{ClassName: "OtherManager", Host: "b", Port: 2}}
	if _, err := Select(endpoints, "TCPIPUserManager", nil); err == nil {
		t.Fatal("expected ErrNoMatchingEndpoint")
	}
}

func TestHTTPDiscovererParsesDocument(t *testing.T) {
	server := httptest.NewServer(xmlHandler())
	defer server.Close()

	d := NewHTTPDiscoverer(server.URL)
	endpoints, err := d.Resolve(context.Background(), "mygame")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("expected 1 endpoint, got %d", len(endpoints))
	}
	ep := endpoints[0]
	if ep.ClassName != "TCPIPUserManager" || ep.Host != "game.example.com" || ep.Port != 5000 {
		t.Fatalf("unexpected endpoint: %+v", ep)
	}
	if ep.Params["region"] != "us-west" {
		t.Fatalf("expected region property to be parsed, got %+v", ep.Params)
	}
}
