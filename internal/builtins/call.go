package builtins

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/th3f0rk/betterpython/internal/gc"
)

// Call invokes the builtin with the given numeric id. Signature matches
// spec.md §4.6: "(id, args[], gc*, exit_code*, exiting*) -> Value".
func Call(id int, args []gc.Value, heap *gc.Heap, exitCode *int, exiting *bool) (gc.Value, error) {
	switch id {
	case Print:
		printArgs(args, false)
		return gc.Null(), nil
	case Println:
		printArgs(args, true)
		return gc.Null(), nil
	case ReadLine:
		var line string
		fmt.Scanln(&line)
		return strVal(heap, line), nil
	case Abs:
		n := args[0].I
		if n < 0 {
			n = -n
		}
		return gc.Int(n), nil
	case Min:
		if args[0].I < args[1].I {
			return args[0], nil
		}
		return args[1], nil
	case Max:
		if args[0].I > args[1].I {
			return args[0], nil
		}
		return args[1], nil
	case Pow:
		return gc.Float(math.Pow(args[0].F, args[1].F)), nil
	case Sqrt:
		return gc.Float(math.Sqrt(args[0].F)), nil
	case Len:
		return gc.Int(int64(len(str(args[0])))), nil
	case Substr:
		s := str(args[0])
		lo, hi := int(args[1].I), int(args[2].I)
		if lo < 0 || hi > len(s) || lo > hi {
			return gc.Value{}, fmt.Errorf("substr: out of range")
		}
		return strVal(heap, s[lo:hi]), nil
	case Split:
		parts := strings.Split(str(args[0]), str(args[1]))
		vals := make([]gc.Value, len(parts))
		for i, p := range parts {
			vals[i] = strVal(heap, p)
		}
		return gc.Value{Kind: gc.KArray, Obj: heap.NewArray(vals)}, nil
	case Join:
		arr := args[0].Obj
		parts := make([]string, len(arr.Arr))
		for i, v := range arr.Arr {
			parts[i] = str(v)
		}
		return strVal(heap, strings.Join(parts, str(args[1]))), nil
	case Upper:
		return strVal(heap, strings.ToUpper(str(args[0]))), nil
	case Lower:
		return strVal(heap, strings.ToLower(str(args[0]))), nil
	case Trim:
		return strVal(heap, strings.TrimSpace(str(args[0]))), nil
	case ToStr:
		return strVal(heap, ToDisplayString(args[0])), nil
	case ParseInt:
		n, err := strconv.ParseInt(strings.TrimSpace(str(args[0])), 10, 64)
		if err != nil {
			return gc.Value{}, fmt.Errorf("parse_int: %w", err)
		}
		return gc.Int(n), nil
	case ParseFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(str(args[0])), 64)
		if err != nil {
			return gc.Value{}, fmt.Errorf("parse_float: %w", err)
		}
		return gc.Float(f), nil
	case ReadFile:
		data, err := os.ReadFile(str(args[0]))
		if err != nil {
			return gc.Value{}, err
		}
		return strVal(heap, string(data)), nil
	case WriteFile:
		err := os.WriteFile(str(args[0]), []byte(str(args[1])), 0o644)
		return gc.Bool(err == nil), nil
	case FileExists:
		_, err := os.Stat(str(args[0]))
		return gc.Bool(err == nil), nil
	case ToJSON:
		b, err := json.Marshal(valueToAny(args[0]))
		if err != nil {
			return gc.Value{}, err
		}
		return strVal(heap, string(b)), nil
	case FromJSON:
		var v any
		if err := json.Unmarshal([]byte(str(args[0])), &v); err != nil {
			return gc.Value{}, err
		}
		return anyToValue(heap, v), nil
	case Base64Encode:
		return strVal(heap, base64.StdEncoding.EncodeToString([]byte(str(args[0])))), nil
	case Base64Decode:
		b, err := base64.StdEncoding.DecodeString(str(args[0]))
		if err != nil {
			return gc.Value{}, err
		}
		return strVal(heap, string(b)), nil
	case HashStr:
		h := fnv.New64a()
		h.Write([]byte(str(args[0])))
		return gc.Int(int64(h.Sum64())), nil
	case RandInt:
		lo, hi := args[0].I, args[1].I
		if hi <= lo {
			return gc.Int(lo), nil
		}
		return gc.Int(lo + rand.Int63n(hi-lo)), nil
	case RandFloat:
		return gc.Float(rand.Float64()), nil
	case Seed:
		rand.Seed(args[0].I)
		return gc.Null(), nil
	case NowMillis:
		return gc.Int(time.Now().UnixMilli()), nil
	case SleepMs:
		time.Sleep(time.Duration(args[0].I) * time.Millisecond)
		return gc.Null(), nil
	case ArrayLen:
		return gc.Int(int64(len(args[0].Obj.Arr))), nil
	case ArrayPush:
		arr := args[0].Obj
		arr.Arr = append(arr.Arr, args[1])
		return gc.Null(), nil
	case Keys:
		m := args[0].Obj
		vals := make([]gc.Value, len(m.MapKeys))
		copy(vals, m.MapKeys)
		return gc.Value{Kind: gc.KArray, Obj: heap.NewArray(vals)}, nil
	case Values:
		m := args[0].Obj
		vals := make([]gc.Value, len(m.MapVals))
		copy(vals, m.MapVals)
		return gc.Value{Kind: gc.KArray, Obj: heap.NewArray(vals)}, nil
	case MapHas:
		_, ok := args[0].Obj.MapGet(args[1])
		return gc.Bool(ok), nil
	case MapDelete:
		args[0].Obj.MapDelete(args[1])
		return gc.Null(), nil
	case RegexMatch:
		re, err := regexp.Compile(str(args[1]))
		if err != nil {
			return gc.Value{}, err
		}
		return gc.Bool(re.MatchString(str(args[0]))), nil
	case RegexReplace:
		re, err := regexp.Compile(str(args[1]))
		if err != nil {
			return gc.Value{}, err
		}
		return strVal(heap, re.ReplaceAllString(str(args[0]), str(args[2]))), nil
	case ThreadSpawn, ThreadJoin:
		// Thread primitives are opaque ids per spec.md §5: the core does not
		// define their semantics. This build has no threading runtime.
		return gc.Value{}, fmt.Errorf("thread primitives not supported in this build")
	case BAnd:
		return gc.Int(args[0].I & args[1].I), nil
	case BOr:
		return gc.Int(args[0].I | args[1].I), nil
	case BXor:
		return gc.Int(args[0].I ^ args[1].I), nil
	case BShl:
		return gc.Int(args[0].I << uint(args[1].I)), nil
	case BShr:
		return gc.Int(args[0].I >> uint(args[1].I)), nil
	case TypeOf:
		return strVal(heap, args[0].TypeTag()), nil
	case Exit:
		*exitCode = int(args[0].I)
		*exiting = true
		return gc.Null(), nil
	default:
		return gc.Value{}, fmt.Errorf("unknown builtin id %d", id)
	}
}

func strVal(heap *gc.Heap, s string) gc.Value {
	return gc.Value{Kind: gc.KStr, Obj: heap.NewString(s)}
}

func str(v gc.Value) string {
	if v.Kind == gc.KStr && v.Obj != nil {
		return v.Obj.Str
	}
	return ToDisplayString(v)
}

// ToDisplayString renders a Value the way print()/to_str() does.
func ToDisplayString(v gc.Value) string {
	switch v.Kind {
	case gc.KInt, gc.KFuncIndex, gc.KPtr:
		return strconv.FormatInt(v.I, 10)
	case gc.KFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case gc.KBool:
		return strconv.FormatBool(v.I != 0)
	case gc.KNull:
		return "null"
	case gc.KStr:
		if v.Obj != nil {
			return v.Obj.Str
		}
		return ""
	case gc.KArray:
		parts := make([]string, len(v.Obj.Arr))
		for i, e := range v.Obj.Arr {
			parts[i] = ToDisplayString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<object>"
	}
}

func printArgs(args []gc.Value, _ bool) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = ToDisplayString(a)
	}
	fmt.Println(strings.Join(parts, " "))
}

func valueToAny(v gc.Value) any {
	switch v.Kind {
	case gc.KInt, gc.KFuncIndex, gc.KPtr:
		return v.I
	case gc.KFloat:
		return v.F
	case gc.KBool:
		return v.I != 0
	case gc.KNull:
		return nil
	case gc.KStr:
		return v.Obj.Str
	case gc.KArray:
		out := make([]any, len(v.Obj.Arr))
		for i, e := range v.Obj.Arr {
			out[i] = valueToAny(e)
		}
		return out
	default:
		return nil
	}
}

func anyToValue(heap *gc.Heap, v any) gc.Value {
	switch t := v.(type) {
	case float64:
		return gc.Float(t)
	case string:
		return strVal(heap, t)
	case bool:
		return gc.Bool(t)
	case nil:
		return gc.Null()
	case []any:
		vals := make([]gc.Value, len(t))
		for i, e := range t {
			vals[i] = anyToValue(heap, e)
		}
		return gc.Value{Kind: gc.KArray, Obj: heap.NewArray(vals)}
	default:
		return gc.Null()
	}
}
