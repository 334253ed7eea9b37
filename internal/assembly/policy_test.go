package assembly

import (
	"reflect"
	"testing"
)

func TestNewSelectionPolicy(t *testing.T) {
	tests := []struct {
		name        string
		fileTypes   []string
		wantInclude []string
		wantExclude []string
	}{
		{
			name:        "default genomic fasta excludes rna and cds variants",
			fileTypes:   []string{"genomic.fna"},
			wantInclude: []string{"*genomic.fna*"},
			wantExclude: []string{"*rna*", "*cds*"},
		},
		{
			name:        "multiple types",
			fileTypes:   []string{"genomic.fna", "genomic.gff"},
			wantInclude: []string{"*genomic.fna*", "*genomic.gff*"},
			wantExclude: []string{"*rna*", "*cds*"},
		},
		{
			name:        "asking for rna drops the rna exclusion",
			fileTypes:   []string{"rna_from_genomic.fna"},
			wantInclude: []string{"*rna_from_genomic.fna*"},
			wantExclude: []string{"*cds*"},
		},
		{
			name:        "asking for cds drops the cds exclusion",
			fileTypes:   []string{"cds_from_genomic.fna"},
			wantInclude: []string{"*cds_from_genomic.fna*"},
			wantExclude: []string{"*rna*"},
		},
		{
			name:        "blank entries are ignored",
			fileTypes:   []string{"", "  ", "protein.faa"},
			wantInclude: []string{"*protein.faa*"},
			wantExclude: []string{"*rna*", "*cds*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSelectionPolicy(tt.fileTypes)
			if !reflect.DeepEqual(got.Include, tt.wantInclude) {
				t.Errorf("Include = %v, want %v", got.Include, tt.wantInclude)
			}
			if !reflect.DeepEqual(got.Exclude, tt.wantExclude) {
				t.Errorf("Exclude = %v, want %v", got.Exclude, tt.wantExclude)
			}
		})
	}
}

func TestSelectionPolicySelects(t *testing.T) {
	policy := NewSelectionPolicy([]string{"genomic.fna"})

	tests := []struct {
		file string
		want bool
	}{
		{"GCF_000005845.2_ASM584v2_genomic.fna.gz", true},
		{"GCF_000005845.2_ASM584v2_rna_from_genomic.fna.gz", false},
		{"GCF_000005845.2_ASM584v2_cds_from_genomic.fna.gz", false},
		{"GCF_000005845.2_ASM584v2_genomic.gff.gz", false},
		{"md5checksums.txt", false},
	}

	for _, tt := range tests {
		if got := policy.Selects(tt.file); got != tt.want {
			t.Errorf("Selects(%q) = %v, want %v", tt.file, got, tt.want)
		}
	}
}

func TestSelectionPolicySelectsRNAWhenRequested(t *testing.T) {
	policy := NewSelectionPolicy([]string{"rna_from_genomic.fna"})

	if !policy.Selects("GCF_1_rna_from_genomic.fna.gz") {
		t.Error("rna variant not selected despite being requested")
	}
	if policy.Selects("GCF_1_genomic.fna.gz") {
		t.Error("plain genomic file selected without being requested")
	}
}

func TestSelectionPolicyEmptyIncludePassesAll(t *testing.T) {
	policy := SelectionPolicy{Exclude: []string{"*rna*"}}

	if !policy.Selects("anything.txt") {
		t.Error("file rejected with no include patterns")
	}
	if policy.Selects("x_rna_y.gz") {
		t.Error("excluded file passed")
	}
}

func TestParseFileTypes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"genomic.fna", []string{"genomic.fna"}},
		{"genomic.fna,genomic.gff", []string{"genomic.fna", "genomic.gff"}},
		{" genomic.fna , protein.faa ", []string{"genomic.fna", "protein.faa"}},
		{"", []string{}},
		{",,", []string{}},
	}

	for _, tt := range tests {
		if got := ParseFileTypes(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseFileTypes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
