package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bravo68web/gitkit/pkg/errors"
)

const submoduleDiff = `diff --git a/.gitmodules b/.gitmodules
new file mode 100644
index 0000000..6abde17
--- /dev/null
+++ b/.gitmodules
@@ -0,0 +1,3 @@
+[submodule "gogs/docs-api"]
+	path = gogs/docs-api
+	url = https://github.com/gogs/docs-api.git
diff --git a/gogs/docs-api b/gogs/docs-api
new file mode 160000
index 0000000..6b08f76
--- /dev/null
+++ b/gogs/docs-api
@@ -0,0 +1 @@
+Subproject commit 6b08f76a5313fa3d26859515b30aa17a5faa2807`

const pomDiff = `diff --git a/pom.xml b/pom.xml
index ee791be..9997571 100644
--- a/pom.xml
+++ b/pom.xml
@@ -1,7 +1,7 @@
 <project xmlns="http://maven.apache.org/POM/4.0.0" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
   xsi:schemaLocation="http://maven.apache.org/POM/4.0.0 http://maven.apache.org/maven-v4_0_0.xsd">
   <modelVersion>4.0.0</modelVersion>
-  <groupId>com.ambientideas</groupId>
+  <groupId>com.github</groupId>
   <artifactId>egitdemo</artifactId>
   <packaging>jar</packaging>
   <version>1.0-SNAPSHOT</version>`

const travisDiff = `diff --git a/.travis.yml b/.travis.yml
index 335db7ea..51d7543e 100644
--- a/.travis.yml
+++ b/.travis.yml
@@ -1,9 +1,6 @@
 sudo: false
 language: go
 go:
-  - 1.4.x
-  - 1.5.x
-  - 1.6.x
   - 1.7.x
   - 1.8.x
   - 1.9.x
@@ -12,6 +9,7 @@ go:
   - 1.12.x
   - 1.13.x
` + " " + `
+install: go get -v ./...
 script:
   - go get golang.org/x/tools/cmd/cover
   - go get github.com/smartystreets/goconvey`

func parse(t *testing.T, p *Parser, text string) *Diff {
	t.Helper()
	d, err := p.Parse(text, "\n")
	require.NoError(t, err)
	return d
}

func TestParseSubmoduleAdd(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), submoduleDiff)

	require.Equal(t, 2, d.NumFiles())
	assert.False(t, d.IsIncomplete())
	assert.Equal(t, 4, d.TotalAdditions())
	assert.Equal(t, 0, d.TotalDeletions())

	modules := d.Files[0]
	assert.Equal(t, ".gitmodules", modules.Name)
	assert.True(t, modules.IsCreated())
	assert.False(t, modules.IsSubmodule())
	assert.Equal(t, "6abde17", modules.Index)
	require.Equal(t, 1, modules.NumSections())
	assert.Equal(t, 4, modules.Sections[0].NumLines())

	sub := d.Files[1]
	assert.Equal(t, "gogs/docs-api", sub.Name)
	assert.Equal(t, FileAdd, sub.Type)
	assert.True(t, sub.IsSubmodule())
	assert.Equal(t, "6b08f76", sub.Index)
	assert.Equal(t, 1, sub.NumAdditions())
}

func TestParseContentChange(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), pomDiff)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.Equal(t, "pom.xml", f.Name)
	assert.Equal(t, FileChange, f.Type)
	assert.Equal(t, "9997571", f.Index)
	assert.Equal(t, 1, f.NumAdditions())
	assert.Equal(t, 1, f.NumDeletions())
	require.Equal(t, 1, f.NumSections())

	s := f.Sections[0]
	require.Equal(t, 9, s.NumLines())
	assert.Equal(t, LineSection, s.Lines[0].Type)
	assert.Equal(t, &Line{Type: LineDelete, Content: "-  <groupId>com.ambientideas</groupId>", LeftLine: 4}, s.Lines[4])
	assert.Equal(t, &Line{Type: LineAdd, Content: "+  <groupId>com.github</groupId>", RightLine: 4}, s.Lines[5])
	assert.Equal(t, 7, s.Lines[8].LeftLine)
	assert.Equal(t, 7, s.Lines[8].RightLine)
}

func TestParseIgnoresSingleAtLines(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), `diff --git a/notes.txt b/notes.txt
index 1111111..2222222 100644
@ stray line
--- a/notes.txt
+++ b/notes.txt
@@ -1 +1 @@
-old
+new`)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	require.Equal(t, 1, f.NumSections())
	assert.Equal(t, 1, f.NumAdditions())
	assert.Equal(t, 1, f.NumDeletions())
	assert.Equal(t, "@@ -1 +1 @@", f.Sections[0].Lines[0].Content)
}

func TestParseBinary(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), `diff --git a/img/sourcegraph.png b/img/sourcegraph.png
new file mode 100644
index 0000000..2ce9188
Binary files /dev/null and b/img/sourcegraph.png differ`)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.True(t, f.IsBinary())
	assert.True(t, f.IsCreated())
	assert.Equal(t, "2ce9188", f.Index)
	assert.Zero(t, f.NumSections())
}

func TestParseDelete(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), `diff --git a/fix.txt b/fix.txt
deleted file mode 100644
index e69de29..0000000`)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.True(t, f.IsDeleted())
	assert.Equal(t, "e69de29", f.Index)
}

func TestParsePureRename(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), `diff --git a/runme.sh b/run.sh
similarity index 100%
rename from runme.sh
rename to run.sh`)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.True(t, f.IsRenamed())
	assert.Equal(t, "run.sh", f.Name)
	assert.Equal(t, "runme.sh", f.OldName)
	assert.Zero(t, f.NumSections())
	assert.Empty(t, f.Index)
}

func TestParseRenameWithContent(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), `diff --git a/src/app/tabs/mentor/mentor.module.ts b/src/app/tabs/friends/friends.module.ts
similarity index 69%
rename from src/app/tabs/mentor/mentor.module.ts
rename to src/app/tabs/friends/friends.module.ts
index ce53c7e..56a156b 100644
--- a/src/app/tabs/mentor/mentor.module.ts
+++ b/src/app/tabs/friends/friends.module.ts
@@ -2,9 +2,9 @@ import { IonicModule } from '@ionic/angular'
 import { RouterModule } from '@angular/router'
 import { NgModule } from '@angular/core'
 import { CommonModule } from '@angular/common'
-import { FormsModule } from '@angular/forms'
-import { MentorPage } from './mentor.page'
 import { ComponentsModule } from '@components/components.module'
+import { FormsModule } from '@angular/forms'
+import { FriendsPage } from './friends.page'`)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.True(t, f.IsRenamed())
	assert.Equal(t, "src/app/tabs/friends/friends.module.ts", f.Name)
	assert.Equal(t, "src/app/tabs/mentor/mentor.module.ts", f.OldName)
	assert.Equal(t, "56a156b", f.Index)
	require.Equal(t, 1, f.NumSections())

	s := f.Sections[0]
	assert.Equal(t, 9, s.NumLines())
	assert.Equal(t, 2, s.NumAdditions())
	assert.Equal(t, 2, s.NumDeletions())
	assert.Equal(t, 2, s.Lines[1].LeftLine)
	assert.Equal(t, 5, s.Lines[4].LeftLine)
	assert.Equal(t, 6, s.Lines[5].LeftLine)
	assert.Equal(t, 5, s.Lines[6].RightLine)
	assert.Equal(t, 6, s.Lines[7].RightLine)
}

func TestParseNoNewlineMarker(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), `diff --git a/dir/file.txt b/dir/file.txt
index b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0..ab80bda5dd90d8b42be25ac2c7a071b722171f09 100644
--- a/dir/file.txt
+++ b/dir/file.txt
@@ -1 +1,3 @@
-hello
\ No newline at end of file
+hello
+
+fdsfdsfds
\ No newline at end of file`)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.Equal(t, "ab80bda5dd90d8b42be25ac2c7a071b722171f09", f.Index)
	require.Equal(t, 1, f.NumSections())

	s := f.Sections[0]
	require.Equal(t, 5, s.NumLines())
	assert.Equal(t, 3, f.NumAdditions())
	assert.Equal(t, 1, f.NumDeletions())
	assert.Equal(t, []int{1, 2, 3}, []int{s.Lines[2].RightLine, s.Lines[3].RightLine, s.Lines[4].RightLine})
	for _, l := range s.Lines {
		assert.False(t, strings.HasPrefix(l.Content, `\`))
	}
}

func TestParseMaxFileLines(t *testing.T) {
	d := parse(t, NewParser(0, 2, 0), travisDiff)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.True(t, f.IsIncomplete())
	assert.True(t, d.IsIncomplete())
	require.Equal(t, 1, f.NumSections())
	assert.Equal(t, 10, f.Sections[0].NumLines())
	assert.Equal(t, 3, d.TotalDeletions())
	assert.Equal(t, 0, d.TotalAdditions())
}

func TestParseTwoSections(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), travisDiff)

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.False(t, f.IsIncomplete())
	require.Equal(t, 2, f.NumSections())

	second := f.Sections[1]
	assert.Equal(t, 8, second.NumLines())
	assert.Equal(t, 12, second.Lines[1].LeftLine)
	assert.Equal(t, 9, second.Lines[1].RightLine)
	assert.Equal(t, &Line{Type: LineAdd, Content: "+install: go get -v ./...", RightLine: 12}, second.Lines[4])
	assert.Equal(t, 1, d.TotalAdditions())
	assert.Equal(t, 3, d.TotalDeletions())
}

func TestParseMaxLineChars(t *testing.T) {
	d := parse(t, NewParser(0, 0, 30), strings.SplitN(submoduleDiff, "\ndiff --git", 2)[0])

	require.Equal(t, 1, d.NumFiles())
	f := d.Files[0]
	assert.True(t, f.IsIncomplete())
	assert.True(t, d.IsIncomplete())
	require.Equal(t, 1, f.NumSections())
	assert.Equal(t, 3, f.Sections[0].NumLines())
	assert.Equal(t, 2, f.NumAdditions())
}

func TestParseMaxFiles(t *testing.T) {
	d := parse(t, NewParser(1, 2, 30), submoduleDiff)

	require.Equal(t, 1, d.NumFiles())
	assert.Equal(t, ".gitmodules", d.Files[0].Name)
	assert.True(t, d.IsIncomplete())
}

func TestParseQuotedPaths(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), `diff --git "a/dir/t\303\251st file.txt" "b/dir/t\303\251st file.txt"
index 0000001..0000002 100644
--- "a/dir/t\303\251st file.txt"
+++ "b/dir/t\303\251st file.txt"
@@ -1 +1 @@
-a
+b`)

	require.Equal(t, 1, d.NumFiles())
	assert.Equal(t, "dir/tést file.txt", d.Files[0].Name)
	assert.Equal(t, 1, d.TotalAdditions())
}

func TestParseModeChangeOnly(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), `diff --git a/run.sh b/run.sh
old mode 100644
new mode 100755
diff --git a/b.txt b/b.txt
index 1111111..2222222 100644
--- a/b.txt
+++ b/b.txt
@@ -1 +1 @@
-x
+y`)

	require.Equal(t, 2, d.NumFiles())
	assert.Equal(t, FileChange, d.Files[0].Type)
	assert.Empty(t, d.Files[0].Index)
	assert.Zero(t, d.Files[0].NumSections())
	assert.Equal(t, "2222222", d.Files[1].Index)
}

func TestParseSkipsPreamble(t *testing.T) {
	d := parse(t, NewParser(0, 0, 0), "commit 9997571\nAuthor: A <a@example.com>\n\n    init\n\n"+pomDiff+"\n")
	require.Equal(t, 1, d.NumFiles())
	assert.Equal(t, 9, d.Files[0].Sections[0].NumLines())
}

func TestParseCustomSeparator(t *testing.T) {
	d, err := NewParser(0, 0, 0).Parse(strings.ReplaceAll(pomDiff, "\n", "\x00"), "\x00")
	require.NoError(t, err)
	require.Equal(t, 1, d.NumFiles())
	assert.Equal(t, 1, d.TotalAdditions())
}

func TestParseReader(t *testing.T) {
	d, err := NewParser(0, 0, 0).ParseReader(strings.NewReader(pomDiff))
	require.NoError(t, err)
	assert.Equal(t, 1, d.NumFiles())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "index without range", text: "diff --git a/x b/x\nindex 1234567 100644"},
		{name: "index with three shas", text: "diff --git a/x b/x\nindex 1..2..3 100644"},
		{name: "header without b path", text: "diff --git a/x"},
		{name: "bad hunk header", text: "diff --git a/x b/x\nindex 1..2\n@@ nonsense"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(0, 0, 0).Parse(tt.text, "\n")
			require.Error(t, err)
			assert.True(t, errors.IsMalformed(err))
		})
	}
}
