package geosite

import (
	"os"
	"path/filepath"
	"testing"
)

func appendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

func appendMessage(b []byte, field int, payload []byte) []byte {
	b = appendVarint(b, uint64(field)<<3|wireLengthDelimited)
	b = appendVarint(b, uint64(len(payload)))
	return append(b, payload...)
}

func appendVarintField(b []byte, field int, v uint64) []byte {
	b = appendVarint(b, uint64(field)<<3|wireVarint)
	return appendVarint(b, v)
}

func encodeDomain(typ DomainType, value string, attrs ...string) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(typ))
	b = appendMessage(b, 2, []byte(value))
	for _, key := range attrs {
		var attr []byte
		attr = appendMessage(attr, 1, []byte(key))
		attr = appendVarintField(attr, 2, 1)
		b = appendMessage(b, 3, attr)
	}
	return b
}

func encodeCategory(name string, domains ...[]byte) []byte {
	var b []byte
	b = appendMessage(b, 1, []byte(name))
	for _, d := range domains {
		b = appendMessage(b, 2, d)
	}
	return b
}

func encodeList(categories ...[]byte) []byte {
	var b []byte
	for _, c := range categories {
		b = appendMessage(b, 1, c)
	}
	return b
}

func TestDecodeList(t *testing.T) {
	raw := encodeList(
		encodeCategory("ADS",
			encodeDomain(DomainTypeDomain, "Tracker.COM"),
			encodeDomain(DomainTypeFull, "pixel.net"),
			encodeDomain(DomainTypePlain, "adserver"),
			encodeDomain(DomainTypeRegex, `^ads\d+\.`),
		),
		encodeCategory("cn",
			encodeDomain(DomainTypeDomain, "example.cn"),
		),
	)
	entries, err := decodeList(raw)
	if err != nil {
		t.Fatalf("decodeList failed, err:%v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("decodeList categories = %d, want 2", len(entries))
	}
	ads, ok := entries["ads"]
	if !ok || len(ads) != 4 {
		t.Fatalf("ads entries = %d, want 4", len(ads))
	}
	if ads[0].Type != DomainTypeDomain || ads[0].Value != "tracker.com" {
		t.Errorf("ads[0] = %+v, want lowered domain entry", ads[0])
	}
	if ads[1].Type != DomainTypeFull || ads[1].Value != "pixel.net" {
		t.Errorf("ads[1] = %+v, want full entry", ads[1])
	}
	if ads[3].Type != DomainTypeRegex || ads[3].Value != `^ads\d+\.` {
		t.Errorf("ads[3] = %+v, want regex entry kept verbatim", ads[3])
	}
}

func TestDecodeDomainAttributes(t *testing.T) {
	raw := encodeDomain(DomainTypeDomain, "tagged.example.com", "ads")
	d, err := decodeDomain(raw)
	if err != nil {
		t.Fatalf("decodeDomain failed, err:%v", err)
	}
	attr, ok := d.Attributes["ads"]
	if !ok || attr.BoolValue == nil || !*attr.BoolValue {
		t.Errorf("Attributes = %+v, want ads:true", d.Attributes)
	}
}

func TestDecodeListTruncated(t *testing.T) {
	raw := encodeList(encodeCategory("ads", encodeDomain(DomainTypeDomain, "tracker.com")))
	if _, err := decodeList(raw[:len(raw)-3]); err == nil {
		t.Errorf("decodeList on truncated data expect error, got nil")
	}
}

func TestProviderLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geosite.dat")
	raw := encodeList(encodeCategory("ads", encodeDomain(DomainTypeDomain, "tracker.com")))
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write dataset failed, err:%v", err)
	}
	p := NewProvider()
	first, err := p.Load(path)
	if err != nil {
		t.Fatalf("Load failed, err:%v", err)
	}
	if first.Len() != 1 {
		t.Errorf("Len = %d, want 1", first.Len())
	}
	if _, ok := first.Domains("ads"); !ok {
		t.Errorf("Domains(ads) not found after load")
	}
	second, err := p.Load(path)
	if err != nil {
		t.Fatalf("second Load failed, err:%v", err)
	}
	if first != second {
		t.Errorf("Load did not reuse cached dataset")
	}
	if _, err := p.Load(filepath.Join(dir, "missing.dat")); err == nil {
		t.Errorf("Load on missing file expect error, got nil")
	}
}
