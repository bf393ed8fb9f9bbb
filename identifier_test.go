package snapcdc

import (
	"testing"
)

func TestQualifiedName(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name      string
		in        string
		namespace string
		want      string
	}{
		{name: "bare", in: "orders", namespace: "default", want: "default.orders"},
		{name: "no namespace", in: "orders", want: "orders"},
		{name: "qualified", in: "sales.orders", namespace: "default", want: "sales.orders"},
		{name: "quoted dot", in: `"Sales"."Order.Detail"`, want: `Sales."Order.Detail"`},
		{name: "empty", in: "  ", namespace: "default", want: ""},
		{name: "empty part", in: "sales.", want: ""},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := qualifiedName(tc.in, tc.namespace)
			if got != tc.want {
				t.Fatalf("qualifiedName(%q,%q) = %q, want %q", tc.in, tc.namespace, got, tc.want)
			}
		})
	}
}
