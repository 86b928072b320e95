package faq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/suite"
)

const sampleYAML = `
themes:
  - theme: Account
    questions:
      - question: How do I log in?
        answer: Send /start and share your phone number.
      - question: The link expired
        answer: Send /start again to get a new one.
  - theme: Billing
    questions:
      - question: Where is my invoice?
        answer: In your personal account.
`

type CatalogTestSuite struct {
	suite.Suite

	dir string
}

func TestCatalogTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogTestSuite))
}

func (s *CatalogTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *CatalogTestSuite) TestParse() {
	c, err := Parse([]byte(sampleYAML))
	s.Require().NoError(err)
	s.Len(c.Themes(), 2)

	t, ok := c.Theme(0)
	s.True(ok)
	s.Equal("Account", t.Theme)
	s.Len(t.Questions, 2)

	q, ok := c.Question(0, 1)
	s.True(ok)
	s.Equal("The link expired", q.Question)
	s.Equal("Send /start again to get a new one.", q.Answer)
}

func (s *CatalogTestSuite) TestOutOfRange() {
	c, err := Parse([]byte(sampleYAML))
	s.Require().NoError(err)

	_, ok := c.Theme(2)
	s.False(ok)
	_, ok = c.Theme(-1)
	s.False(ok)
	_, ok = c.Question(1, 1)
	s.False(ok)
	_, ok = c.Question(5, 0)
	s.False(ok)
}

func (s *CatalogTestSuite) TestThemeWithoutTitle() {
	_, err := Parse([]byte("themes:\n  - questions: []\n"))
	s.Error(err)
}

func (s *CatalogTestSuite) TestLoadFile() {
	path := filepath.Join(s.dir, "faq.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(sampleYAML), 0o600))

	c, err := LoadFile(path)
	s.Require().NoError(err)
	s.Len(c.Themes(), 2)
}

func (s *CatalogTestSuite) TestLoadCompressedFile() {
	enc, err := zstd.NewWriter(nil)
	s.Require().NoError(err)
	compressed := enc.EncodeAll([]byte(sampleYAML), nil)
	s.Require().NoError(enc.Close())

	path := filepath.Join(s.dir, "faq.yaml.zst")
	s.Require().NoError(os.WriteFile(path, compressed, 0o600))

	c, err := LoadFile(path)
	s.Require().NoError(err)
	q, ok := c.Question(1, 0)
	s.True(ok)
	s.Equal("Where is my invoice?", q.Question)
}

func (s *CatalogTestSuite) TestLoadFileErrors() {
	c, err := LoadFile("")
	s.NoError(err)
	s.Empty(c.Themes())

	_, err = LoadFile(filepath.Join(s.dir, "missing.yaml"))
	s.Error(err)

	path := filepath.Join(s.dir, "broken.yaml.zst")
	s.Require().NoError(os.WriteFile(path, []byte("not zstd"), 0o600))
	_, err = LoadFile(path)
	s.Error(err)
}

func (s *CatalogTestSuite) TestCallbacks() {
	s.Equal("faq_theme:3", ThemeCallback(3))
	s.Equal("faq_question:3:1", QuestionCallback(3, 1))

	ti, err := ParseThemeCallback(ThemeCallback(3))
	s.NoError(err)
	s.Equal(3, ti)

	ti, qi, err := ParseQuestionCallback(QuestionCallback(3, 1))
	s.NoError(err)
	s.Equal(3, ti)
	s.Equal(1, qi)

	_, err = ParseThemeCallback("faq_question:1")
	s.Error(err)
	_, err = ParseThemeCallback("faq_theme:x")
	s.Error(err)
	_, _, err = ParseQuestionCallback("faq_question:1")
	s.Error(err)
	_, _, err = ParseQuestionCallback("faq_question:1:y")
	s.Error(err)
}
