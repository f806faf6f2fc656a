package service

import "testing"

func TestAvatarURL(t *testing.T) {
	tests := []struct {
		name, base, in, want string
	}{
		{"two initials", "", "coach", "https://ui-avatars.com/api/?background=0D8ABC&color=fff&name=CO"},
		{"same prefix same url", "", "cole", "https://ui-avatars.com/api/?background=0D8ABC&color=fff&name=CO"},
		{"single rune", "", "k", "https://ui-avatars.com/api/?background=0D8ABC&color=fff&name=K"},
		{"multibyte", "", "Ösel", "https://ui-avatars.com/api/?background=0D8ABC&color=fff&name=%C3%96S"},
		{"custom base", "https://avatars.local/", " Ann", "https://avatars.local/?background=0D8ABC&color=fff&name=AN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvatarURL(tt.base, tt.in); got != tt.want {
				t.Fatalf("AvatarURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
