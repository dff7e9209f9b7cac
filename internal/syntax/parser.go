package syntax

import "strings"

// Parse builds a Tree from source text. It never panics: malformed input
// becomes ERROR nodes rather than aborting (the caller falls back to a
// diagnostic at byte 0 if Parse itself somehow can't make progress, which in
// practice it always can since every line becomes at least one node).
func Parse(source []byte) *Tree {
	p := &parser{source: source}
	p.splitLines()

	root := &Node{kind: KindDocument, startByte: 0, endByte: len(source), startPoint: Point{0, 0}}

	i := 0
	for i < len(p.lineStarts) {
		lineBytes := p.lineBytes(i)
		switch {
		case isBlank(lineBytes):
			i++
		case isIndented(lineBytes):
			// Orphaned continuation line with no owning directive.
			root.addChild(p.errorNode(i, "unexpected indented line"))
			i++
		case strings.HasPrefix(strings.TrimSpace(string(lineBytes)), ";"):
			root.addChild(p.commentNode(i))
			i++
		case hasWord(lineBytes, "include"):
			root.addChild(p.parseInclude(i))
			i++
		case isPragmaKeyword(lineBytes):
			root.addChild(p.parsePragma(i))
			i++
		case startsWithDate(lineBytes):
			node, consumed := p.parseDirective(i)
			root.addChild(node)
			i += consumed
		default:
			root.addChild(p.errorNode(i, "unrecognized directive"))
			i++
		}
	}

	root.endPoint = Point{Row: len(p.lineStarts), Column: 0}
	if len(p.lineStarts) > 0 {
		last := len(p.lineStarts) - 1
		root.endPoint = Point{Row: last, Column: len(p.lineBytes(last))}
	}

	return &Tree{Root: root, Errors: p.errors}
}

type parser struct {
	source     []byte
	lineStarts []int
	errors     []SyntaxError
}

func (p *parser) splitLines() {
	p.lineStarts = []int{0}
	for i, b := range p.source {
		if b == '\n' {
			p.lineStarts = append(p.lineStarts, i+1)
		}
	}
}

func (p *parser) lineBytes(row int) []byte {
	start := p.lineStarts[row]
	var end int
	if row+1 < len(p.lineStarts) {
		end = p.lineStarts[row+1] - 1
		if end < start {
			end = start
		}
	} else {
		end = len(p.source)
	}
	if end > start && p.source[end-1] == '\r' {
		end--
	}
	return p.source[start:end]
}

func (p *parser) point(row, col int) Point { return Point{Row: row, Column: col} }
func (p *parser) byteOffset(row, col int) int {
	return p.lineStarts[row] + col
}

func (p *parser) errorNode(row int, msg string) *Node {
	line := p.lineBytes(row)
	start := p.byteOffset(row, 0)
	end := p.byteOffset(row, len(line))
	p.errors = append(p.errors, SyntaxError{Point: p.point(row, 0), Byte: start, Message: msg})
	return &Node{kind: KindError, startByte: start, endByte: end, startPoint: p.point(row, 0), endPoint: p.point(row, len(line))}
}

func (p *parser) commentNode(row int) *Node {
	line := p.lineBytes(row)
	start := p.byteOffset(row, 0)
	end := p.byteOffset(row, len(line))
	return &Node{kind: KindComment, startByte: start, endByte: end, startPoint: p.point(row, 0), endPoint: p.point(row, len(line)), value: string(line)}
}

func hasWord(line []byte, word string) bool {
	trimmed := strings.TrimSpace(string(line))
	if !strings.HasPrefix(trimmed, word) {
		return false
	}
	rest := trimmed[len(word):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func isPragmaKeyword(line []byte) bool {
	for _, kw := range []string{"option", "plugin", "pushtag", "poptag", "pushmeta", "popmeta"} {
		if hasWord(line, kw) {
			return true
		}
	}
	return false
}

func startsWithDate(line []byte) bool {
	ws := leadingWhitespace(line)
	return ws == 0 && isDate(line, 0)
}

// leaf builds a leaf Node covering a single token.
func (p *parser) leaf(row int, kind Kind, tok token, value string) *Node {
	start := p.byteOffset(row, tok.startCol)
	end := p.byteOffset(row, tok.endCol)
	return &Node{kind: kind, startByte: start, endByte: end, startPoint: p.point(row, tok.startCol), endPoint: p.point(row, tok.endCol), value: value}
}

func (p *parser) parseInclude(row int) *Node {
	line := p.lineBytes(row)
	toks := lexLine(line)
	start := p.byteOffset(row, 0)
	end := p.byteOffset(row, len(line))
	n := &Node{kind: KindInclude, startByte: start, endByte: end, startPoint: p.point(row, 0), endPoint: p.point(row, len(line))}
	for _, t := range toks {
		if t.kind == tokString {
			path := p.leaf(row, KindString, t, t.text)
			n.setField(FieldPath, path)
			n.addChild(path)
			break
		}
	}
	return n
}

func (p *parser) parsePragma(row int) *Node {
	line := p.lineBytes(row)
	start := p.byteOffset(row, 0)
	end := p.byteOffset(row, len(line))
	return &Node{kind: KindPragma, startByte: start, endByte: end, startPoint: p.point(row, 0), endPoint: p.point(row, len(line))}
}

// directiveKinds maps the bare keyword token following the date to a Kind.
var directiveKinds = map[string]Kind{
	"open":      KindOpen,
	"close":     KindClose,
	"balance":   KindBalance,
	"pad":       KindPad,
	"note":      KindNote,
	"document":  KindDocumentDir,
	"price":     KindPrice,
	"event":     KindEvent,
	"query":     KindQuery,
	"commodity": KindCommodity,
	"txn":       KindTransaction,
}

// parseDirective parses the directive header starting at row (always a
// date-anchored line) and, for transactions, the indented posting block
// that follows. Returns the built node and the number of source lines it
// consumed.
func (p *parser) parseDirective(row int) (*Node, int) {
	line := p.lineBytes(row)
	toks := lexLine(line)
	if len(toks) == 0 || toks[0].kind != tokDate {
		return p.errorNode(row, "expected date"), 1
	}

	start := p.byteOffset(row, 0)
	dateTok := toks[0]
	dateNode := p.leaf(row, KindDate, dateTok, dateTok.text)

	if len(toks) < 2 {
		n := &Node{kind: KindError, startByte: start, endByte: p.byteOffset(row, len(line)), startPoint: p.point(row, 0), endPoint: p.point(row, len(line))}
		n.setField(FieldDate, dateNode)
		n.addChild(dateNode)
		return n, 1
	}

	second := toks[1]
	var kind Kind
	var flagNode *Node
	if second.kind == tokFlag {
		kind = KindTransaction
		flagNode = p.leaf(row, KindFlag, second, second.text)
	} else if second.kind == tokIdent {
		k, ok := directiveKinds[second.text]
		if !ok {
			n := &Node{kind: KindError, startByte: start, endByte: p.byteOffset(row, len(line)), startPoint: p.point(row, 0), endPoint: p.point(row, len(line))}
			n.setField(FieldDate, dateNode)
			n.addChild(dateNode)
			return n, 1
		}
		kind = k
	} else {
		n := &Node{kind: KindError, startByte: start, endByte: p.byteOffset(row, len(line)), startPoint: p.point(row, 0), endPoint: p.point(row, len(line))}
		n.setField(FieldDate, dateNode)
		n.addChild(dateNode)
		return n, 1
	}

	if kind == KindTransaction {
		return p.parseTransaction(row, toks, dateNode, flagNode)
	}
	return p.parseSimpleDirective(row, kind, toks, dateNode), 1
}

// parseSimpleDirective handles every non-transaction, non-posting-bearing
// directive: open/close/balance/pad/note/document/price/event/query/commodity.
func (p *parser) parseSimpleDirective(row int, kind Kind, toks []token, dateNode *Node) *Node {
	line := p.lineBytes(row)
	start := p.byteOffset(row, 0)
	end := p.byteOffset(row, len(line))
	n := &Node{kind: kind, startByte: start, endByte: end, startPoint: p.point(row, 0), endPoint: p.point(row, len(line))}
	n.setField(FieldDate, dateNode)
	n.addChild(dateNode)

	rest := toks[2:]

	switch kind {
	case KindOpen:
		idx := 0
		if idx < len(rest) && rest[idx].kind == tokIdent {
			acct := p.leaf(row, KindAccount, rest[idx], rest[idx].text)
			n.setField(FieldAccount, acct)
			n.addChild(acct)
			idx++
		}
		for ; idx < len(rest); idx++ {
			if rest[idx].kind == tokIdent {
				cur := p.leaf(row, KindCurrency, rest[idx], rest[idx].text)
				n.addChild(cur)
			}
		}
	case KindClose, KindPad:
		for _, t := range rest {
			if t.kind == tokIdent {
				acct := p.leaf(row, KindAccount, t, t.text)
				if n.ChildByFieldName(FieldAccount) == nil {
					n.setField(FieldAccount, acct)
				}
				n.addChild(acct)
			}
		}
	case KindBalance:
		idx := 0
		if idx < len(rest) && rest[idx].kind == tokIdent {
			acct := p.leaf(row, KindAccount, rest[idx], rest[idx].text)
			n.setField(FieldAccount, acct)
			n.addChild(acct)
			idx++
		}
		amt := p.parseAmountFrom(row, rest, idx)
		if amt != nil {
			n.setField(FieldAmount, amt)
			n.addChild(amt)
		}
	case KindNote, KindDocumentDir:
		idx := 0
		if idx < len(rest) && rest[idx].kind == tokIdent {
			acct := p.leaf(row, KindAccount, rest[idx], rest[idx].text)
			n.setField(FieldAccount, acct)
			n.addChild(acct)
			idx++
		}
		if idx < len(rest) && rest[idx].kind == tokString {
			str := p.leaf(row, KindString, rest[idx], rest[idx].text)
			n.addChild(str)
		}
	case KindPrice:
		idx := 0
		if idx < len(rest) && rest[idx].kind == tokIdent {
			cur := p.leaf(row, KindCurrency, rest[idx], rest[idx].text)
			n.setField(FieldCurrency, cur)
			n.addChild(cur)
			idx++
		}
		amt := p.parseAmountFrom(row, rest, idx)
		if amt != nil {
			n.setField(FieldAmount, amt)
			n.addChild(amt)
		}
	case KindEvent, KindQuery:
		for _, t := range rest {
			if t.kind == tokString {
				str := p.leaf(row, KindString, t, t.text)
				n.addChild(str)
			}
		}
	case KindCommodity:
		for _, t := range rest {
			if t.kind == tokIdent {
				cur := p.leaf(row, KindCurrency, t, t.text)
				n.setField(FieldCurrency, cur)
				n.addChild(cur)
				break
			}
		}
	}

	return n
}

// parseAmountFrom builds an amount node (number + currency) from tokens
// starting at idx, or nil if no number is present at that position.
func (p *parser) parseAmountFrom(row int, toks []token, idx int) *Node {
	if idx >= len(toks) || toks[idx].kind != tokNumber {
		return nil
	}
	numTok := toks[idx]
	numNode := p.leaf(row, KindNumber, numTok, numTok.text)

	amt := &Node{kind: KindAmount, startByte: numNode.startByte, endByte: numNode.endByte, startPoint: numNode.startPoint, endPoint: numNode.endPoint}
	amt.setField(FieldNumber, numNode)
	amt.addChild(numNode)

	if idx+1 < len(toks) && toks[idx+1].kind == tokIdent {
		curTok := toks[idx+1]
		curNode := p.leaf(row, KindCurrency, curTok, curTok.text)
		amt.setField(FieldCurrency, curNode)
		amt.addChild(curNode)
		amt.endByte = curNode.endByte
		amt.endPoint = curNode.endPoint
	} else {
		amt.kind = KindIncAmount
	}
	return amt
}

// parseTransaction parses a transaction header and its indented posting
// block. Returns the node and the number of source lines consumed.
func (p *parser) parseTransaction(row int, headerToks []token, dateNode, flagNode *Node) (*Node, int) {
	line := p.lineBytes(row)
	start := p.byteOffset(row, 0)
	n := &Node{kind: KindTransaction, startByte: start, startPoint: p.point(row, 0)}
	n.setField(FieldDate, dateNode)
	n.addChild(dateNode)
	if flagNode != nil {
		n.setField(FieldFlag, flagNode)
		n.addChild(flagNode)
	}

	rest := headerToks[2:]
	var strings_ []token
	for _, t := range rest {
		switch t.kind {
		case tokString:
			strings_ = append(strings_, t)
		case tokTag:
			tagNode := p.leaf(row, KindTag, t, t.text)
			n.addChild(tagNode)
		case tokLink:
			linkNode := p.leaf(row, KindLink, t, t.text)
			n.addChild(linkNode)
		}
	}
	if len(strings_) >= 1 {
		if len(strings_) == 1 {
			narr := p.leaf(row, KindString, strings_[0], strings_[0].text)
			n.setField(FieldNarration, narr)
			n.addChild(narr)
		} else {
			payee := p.leaf(row, KindString, strings_[0], strings_[0].text)
			narr := p.leaf(row, KindString, strings_[1], strings_[1].text)
			n.setField(FieldPayee, payee)
			n.addChild(payee)
			n.setField(FieldNarration, narr)
			n.addChild(narr)
		}
	}

	endByte := p.byteOffset(row, len(line))
	endPoint := p.point(row, len(line))

	consumed := 1
	nextRow := row + 1
	for nextRow < len(p.lineStarts) {
		nl := p.lineBytes(nextRow)
		if isBlank(nl) || !isIndented(nl) {
			break
		}
		post := p.parsePostingLine(nextRow)
		if post != nil {
			n.addChild(post)
			if post.Kind() == KindPosting {
				// no field slot; postings retrieved via Children filtered by kind
			}
			endByte = post.endByte
			endPoint = post.endPoint
		} else {
			endByte = p.byteOffset(nextRow, len(nl))
			endPoint = p.point(nextRow, len(nl))
		}
		consumed++
		nextRow++
	}

	n.endByte = endByte
	n.endPoint = endPoint
	return n, consumed
}

// parsePostingLine parses one indented continuation line of a transaction:
// a posting, a tag/link continuation, a comment, or a metadata key:value
// pair (consumed but not modeled beyond a generic node, since bookkeeping
// metadata semantics are out of scope here).
func (p *parser) parsePostingLine(row int) *Node {
	line := p.lineBytes(row)
	trimmed := strings.TrimSpace(string(line))
	if strings.HasPrefix(trimmed, ";") {
		return p.commentNode(row)
	}

	toks := lexLine(line)
	if len(toks) == 0 {
		return nil
	}

	start := p.byteOffset(row, leadingWhitespace(line))
	end := p.byteOffset(row, len(line))

	// Bare tag/link continuation line (no account token).
	if toks[0].kind == tokTag || toks[0].kind == tokLink {
		n := &Node{kind: KindPosting, startByte: start, endByte: end, startPoint: p.point(row, leadingWhitespace(line)), endPoint: p.point(row, len(line))}
		for _, t := range toks {
			switch t.kind {
			case tokTag:
				n.addChild(p.leaf(row, KindTag, t, t.text))
			case tokLink:
				n.addChild(p.leaf(row, KindLink, t, t.text))
			}
		}
		return n
	}

	if toks[0].kind != tokIdent {
		// Metadata or unrecognized continuation; keep as an opaque node so
		// the transaction's span still covers it.
		return &Node{kind: KindPragma, startByte: start, endByte: end, startPoint: p.point(row, leadingWhitespace(line)), endPoint: p.point(row, len(line))}
	}

	// key: value metadata line (Ident immediately followed by ':').
	if len(toks) >= 2 && toks[1].kind == tokColon {
		return &Node{kind: KindPragma, startByte: start, endByte: end, startPoint: p.point(row, leadingWhitespace(line)), endPoint: p.point(row, len(line))}
	}

	acctTok := toks[0]
	acctNode := p.leaf(row, KindAccount, acctTok, acctTok.text)

	n := &Node{kind: KindPosting, startByte: start, endByte: end, startPoint: p.point(row, leadingWhitespace(line)), endPoint: p.point(row, len(line))}
	n.setField(FieldAccount, acctNode)
	n.addChild(acctNode)

	amt := p.parseAmountFrom(row, toks, 1)
	if amt != nil {
		n.setField(FieldAmount, amt)
		n.addChild(amt)

		// Look for an '@'/'@@' price annotation after the amount.
		amtTokenCount := 1 // number
		if amt.ChildByFieldName(FieldCurrency) != nil {
			amtTokenCount = 2
		}
		priceIdx := 1 + amtTokenCount
		if priceIdx < len(toks) && (toks[priceIdx].kind == tokAt || toks[priceIdx].kind == tokAtAt) {
			priceAmt := p.parseAmountFrom(row, toks, priceIdx+1)
			if priceAmt != nil {
				priceNode := &Node{kind: KindPrice2, startByte: priceAmt.startByte, endByte: priceAmt.endByte, startPoint: priceAmt.startPoint, endPoint: priceAmt.endPoint}
				priceNode.addChild(priceAmt)
				n.setField(FieldPrice, priceNode)
				n.addChild(priceNode)
			}
		}
	}

	for _, t := range toks {
		switch t.kind {
		case tokTag:
			n.addChild(p.leaf(row, KindTag, t, t.text))
		case tokLink:
			n.addChild(p.leaf(row, KindLink, t, t.text))
		}
	}

	return n
}
