package llm

import (
	"reflect"
	"testing"
)

func TestDecodeSEOArrayHashtags(t *testing.T) {
	content := "```json\n{\"title\":\"Go em 60s\",\"description\":\"Tudo sobre goroutines\",\"tags\":[\"go\",\"#concorrencia\"],\"hashtags\":[\"#go\",\"shorts\"]}\n```"
	seo, err := DecodeSEO(content)
	if err != nil {
		t.Fatalf("DecodeSEO: %v", err)
	}
	if seo.Title != "Go em 60s" || seo.Description != "Tudo sobre goroutines" {
		t.Fatalf("unexpected seo %+v", seo)
	}
	if !reflect.DeepEqual(seo.Tags, []string{"go", "concorrencia"}) {
		t.Fatalf("tags = %v", seo.Tags)
	}
	if !reflect.DeepEqual(seo.Hashtags, []string{"#go", "#shorts"}) {
		t.Fatalf("hashtags = %v", seo.Hashtags)
	}
}

func TestDecodeSEOStringHashtags(t *testing.T) {
	seo, err := DecodeSEO(`{"title":"T","description":"D","hashtags":"#a #b"}`)
	if err != nil {
		t.Fatalf("DecodeSEO: %v", err)
	}
	if !reflect.DeepEqual(seo.Hashtags, []string{"#a", "#b"}) {
		t.Fatalf("hashtags = %v", seo.Hashtags)
	}
	if got, want := seo.Text(), "T\n\nD\n\n#a #b"; got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestDecodeSEORequiresTitle(t *testing.T) {
	if _, err := DecodeSEO(`{"description":"D"}`); err == nil {
		t.Fatal("expected error for missing title")
	}
}
