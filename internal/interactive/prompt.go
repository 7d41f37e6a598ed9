package interactive

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter は一行ずつの対話入力を提供する
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewPrompter は新しいプロンプターを作成する
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// ReadLine はプロンプトを表示して一行読み込む。入力が終わった場合は false を返す
func (p *Prompter) ReadLine(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)

	input, err := p.reader.ReadString('\n')
	if err != nil && input == "" {
		// 端末で Ctrl-D が押された場合に改行する
		fmt.Fprintln(p.out)
		return "", false
	}
	return strings.TrimSpace(input), true
}

// ShowBanner はウェルカムバナーを表示する
func (p *Prompter) ShowBanner(title, message string) {
	fmt.Fprintln(p.out, title)
	fmt.Fprintln(p.out, strings.Repeat("=", 32))
	if message != "" {
		fmt.Fprintln(p.out, message)
	}
	fmt.Fprintln(p.out)
}
