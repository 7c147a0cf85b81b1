// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package xmlinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<SoundBanksInfo>
  <DialogEvents></DialogEvents>
  <Banks></Banks>
  <StreamedFiles>
    <File Id="111" Language="SFX"><ShortName>sfx\door_open.wem</ShortName></File>
    <File Id="222" Language="SFX"><ShortName>sfx\door_close.wem</ShortName></File>
    <File Id="333" Language="English"><ShortName>vo\door_open.wem</ShortName></File>
  </StreamedFiles>
</SoundBanksInfo>`

func TestLookupFiltersByLanguageAndSubstring(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "soundbanksinfo.xml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	results, err := Lookup(path, "SFX", "door_open")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "111", results[0].ID)
	assert.Equal(t, `sfx\door_open.wem`, results[0].ShortName)
}
