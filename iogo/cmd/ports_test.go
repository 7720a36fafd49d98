package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePortList(t *testing.T) {
	tests := []struct {
		name    string
		list    string
		want    []uint16
		wantErr bool
	}{
		{name: "single decimal", list: "496", want: []uint16{496}},
		{name: "single hex", list: "0xC220", want: []uint16{0xC220}},
		{name: "comma list", list: "0xC220,0xC222", want: []uint16{0xC220, 0xC222}},
		{name: "range", list: "0x1F0-0x1F3", want: []uint16{0x1F0, 0x1F1, 0x1F2, 0x1F3}},
		{name: "mixed", list: "1,3-5,0x10", want: []uint16{1, 3, 4, 5, 0x10}},
		{name: "whitespace", list: " 1 , 2 ", want: []uint16{1, 2}},
		{name: "max port", list: "65535", want: []uint16{65535}},
		{name: "out of range", list: "65536", wantErr: true},
		{name: "empty element", list: "1,,2", wantErr: true},
		{name: "empty list", list: "", wantErr: true},
		{name: "inverted range", list: "5-3", wantErr: true},
		{name: "garbage", list: "ide", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePortList(tt.list)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
