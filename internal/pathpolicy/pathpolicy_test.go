package pathpolicy

import (
	"testing"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsPlainRelativePath(t *testing.T) {
	got, err := Validate("src/main.rs")
	require.Nil(t, err)
	assert.Equal(t, "src/main.rs", got)
}

func TestValidateRejectsAbsolute(t *testing.T) {
	_, err := Validate("/etc/passwd")
	require.NotNil(t, err)
	assert.Equal(t, errs.CodeInvalidPath, err.Code)
}

func TestValidateRejectsTraversal(t *testing.T) {
	_, err := Validate("../x")
	require.NotNil(t, err)
	assert.Equal(t, errs.CodeInvalidPath, err.Code)
}

func TestValidateRejectsStateDir(t *testing.T) {
	_, err := Validate(".context/foo")
	require.NotNil(t, err)
	assert.Equal(t, errs.CodeInvalidPath, err.Code)

	_, err = Validate(".context")
	require.NotNil(t, err)
}

func TestValidateRejectsEmpty(t *testing.T) {
	_, err := Validate("")
	require.NotNil(t, err)
}

func TestValidateNormalizesSeparatorsAndDotSlash(t *testing.T) {
	got, err := Validate(`.\src\\main.rs`)
	require.Nil(t, err)
	assert.Equal(t, "src/main.rs", got)
}

func TestAcceptCounterExamples(t *testing.T) {
	assert.False(t, Accept("/etc/passwd"))
	assert.False(t, Accept("../x"))
	assert.False(t, Accept(".context/foo"))
	assert.True(t, Accept("src/lib.rs"))
}
