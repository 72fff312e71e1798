// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package expr

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vantage-db/qengine/ion"
)

// Decode turns an ion.Datum previously produced by Node.Encode back
// into a Node.
func Decode(d ion.Datum) (Node, error) {
	node, err := decode(d)
	if err != nil {
		err = fmt.Errorf("expr.Decode: %w", err)
	}
	return node, err
}

func decode(d ion.Datum) (Node, error) {
	if d.Empty() {
		return nil, fmt.Errorf("no input data")
	}
	switch d.Type() {
	case ion.NullType:
		return Null{}, nil
	case ion.BoolType:
		b, _ := d.Bool()
		return Bool(b), nil
	case ion.UintType:
		u, _ := d.Uint()
		return Integer(u), nil
	case ion.IntType:
		i, _ := d.Int()
		return Integer(i), nil
	case ion.FloatType:
		f, _ := d.Float()
		return Float(f), nil
	case ion.StringType:
		s, _ := d.String()
		return String(s), nil
	case ion.StructType:
		var st ion.Symtab
		var buf ion.Buffer
		d.Encode(&buf, &st)
		n, _, err := decodeStructBody(&st, buf.Bytes())
		return n, err
	case ion.SymbolType:
		s, _ := d.String()
		return Ident(s), nil
	case ion.TimestampType:
		ts, _ := d.Timestamp()
		return &Timestamp{Value: ts}, nil
	default:
		return nil, fmt.Errorf("cannot decode ion %s", d.Type())
	}
}

var errUnexpectedField = errors.New("unexpected field")

// decodeField decodes the next ion value out of body using st to
// resolve symbols, returning the remainder of body after that value.
// This is the byte-oriented counterpart of Decode that every
// composite node's setfield method uses to recursively decode its
// children, mirroring the raw ion.Unpack* decoding style the rest of
// this package uses instead of round-tripping through ion.Datum.
func decodeField(st *ion.Symtab, body []byte) (Node, []byte, error) {
	if len(body) == 0 {
		return nil, body, fmt.Errorf("expr: no data to decode")
	}
	if ion.TypeOf(body) == ion.StructType {
		return decodeStructBody(st, body)
	}
	d, rest, err := ion.ReadDatum(st, body)
	if err != nil {
		return nil, rest, err
	}
	n, err := decode(d)
	return n, rest, err
}

// composite is the interface every node type decoded from a
// "typed struct" (a struct with a "type" field identifying which Node
// concrete type follows) must implement.
type composite interface {
	Node
	setfield(name string, st *ion.Symtab, body []byte) error
}

func decodeStructBody(st *ion.Symtab, body []byte) (Node, []byte, error) {
	var out composite
	settype := func(name string) error {
		e, ok := getEmpty(name)
		if !ok {
			return fmt.Errorf("expr: unrecognized node type %q", name)
		}
		out = e
		return nil
	}
	setfield := func(name string, fbody []byte) error {
		if out == nil {
			return fmt.Errorf(`expr: struct is missing a "type" field`)
		}
		return out.setfield(name, st, fbody)
	}
	rest, err := ion.UnpackTypedStruct(st, body, settype, setfield)
	if err != nil {
		return nil, rest, err
	}
	return out, rest, nil
}

func getEmpty(name string) (composite, bool) {
	switch name {
	case "aggregate":
		return &Aggregate{}, true
	case "rat":
		return (*Rational)(new(big.Rat)), true
	case "star":
		return Star{}, true
	case "dot":
		return &Dot{}, true
	case "index":
		return &Index{}, true
	case "cmp":
		return &Comparison{}, true
	case "stringmatch":
		return &StringMatch{}, true
	case "not":
		return &Not{}, true
	case "logical":
		return &Logical{}, true
	case "builtin":
		return &Builtin{}, true
	case "unaryArith":
		return &UnaryArith{}, true
	case "arith":
		return &Arithmetic{}, true
	case "is":
		return &IsKey{}, true
	case "missing":
		return Missing{}, true
	case "case":
		return &Case{}, true
	case "cast":
		return &Cast{}, true
	case "member":
		return &Member{}, true
	case "struct":
		return &Struct{}, true
	case "list":
		return &List{}, true
	default:
		return nil, false
	}
}
