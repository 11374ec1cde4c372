package model

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestMoney_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Total Money `json:"total"`
	}{MoneyFromFloat(762.9)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"total":"762.90"}` {
		t.Errorf("got %s", b)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"quoted", `"941.85"`, "941.85"},
		{"bare number", `941.85`, "941.85"},
		{"rounds half up", `"6.465"`, "6.47"},
		{"integer", `30`, "30.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			if err := json.Unmarshal([]byte(tt.in), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if m.String() != tt.want {
				t.Errorf("got %s, want %s", m, tt.want)
			}
		})
	}

	var bad Money
	if err := json.Unmarshal([]byte(`"ten"`), &bad); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestMoney_BSON(t *testing.T) {
	type doc struct {
		Total Money `bson:"total"`
	}
	b, err := bson.Marshal(doc{Total: MoneyFromFloat(209.1)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := bson.Raw(b).Lookup("total").StringValue(); got != "209.10" {
		t.Errorf("stored as %q, want 209.10", got)
	}

	var back doc
	if err := bson.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Total.String() != "209.10" {
		t.Errorf("round trip: got %s", back.Total)
	}

	// Documents written before amounts were strings hold doubles.
	legacy, err := bson.Marshal(bson.M{"total": 378.0})
	if err != nil {
		t.Fatalf("marshal legacy: %v", err)
	}
	var old doc
	if err := bson.Unmarshal(legacy, &old); err != nil {
		t.Fatalf("unmarshal legacy: %v", err)
	}
	if old.Total.String() != "378.00" {
		t.Errorf("legacy: got %s", old.Total)
	}
}

func TestMoney_Plus(t *testing.T) {
	got := MoneyFromFloat(129.3).Plus(MoneyFromFloat(6.47)).Plus(MoneyFromFloat(73.33))
	if got.String() != "209.10" {
		t.Errorf("got %s, want 209.10", got)
	}
}
