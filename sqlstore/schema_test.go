package sqlstore

import (
	"testing"
)

type OrderItem struct{}

type account struct{}

func (account) TableName() string { return "billing.accounts" }

type ledger struct{}

func (*ledger) TableName() string { return "ledgers_v2" }

type blank struct{}

func (blank) TableName() string { return "  " }

func TestResolveTableName(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{name: "string", in: " public.orders ", want: "public.orders"},
		{name: "struct", in: OrderItem{}, want: "order_items"},
		{name: "pointer", in: &OrderItem{}, want: "order_items"},
		{name: "namer value", in: account{}, want: "billing.accounts"},
		{name: "namer pointer receiver", in: ledger{}, want: "ledgers_v2"},
		{name: "empty namer", in: blank{}, wantErr: true},
		{name: "anonymous struct", in: struct{}{}, wantErr: true},
		{name: "nil pointer", in: (*OrderItem)(nil), wantErr: true},
		{name: "nil", in: nil, wantErr: true},
		{name: "int", in: 3, wantErr: true},
		{name: "blank string", in: "  ", wantErr: true},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := resolveTableName(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("resolveTableName(%#v) = %q, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveTableName(%#v) error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("resolveTableName(%#v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"Person":     "person",
		"OrderItem":  "order_item",
		"HTTPServer": "http_server",
		"UserID":     "user_id",
	}
	for in, want := range tcs {
		if got := toSnakeCase(in); got != want {
			t.Fatalf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
