package stdlib

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	tiny "github.com/hiperiondev/tiny/pkg/embed"
)

// The rpc module is a dynamic gRPC client: scripts load .proto files
// at runtime and invoke unary methods with JSON requests, without any
// generated code on the host side.

var (
	protoRegistry      = make(map[string]*desc.FileDescriptor)
	protoRegistryMutex sync.RWMutex
)

type rpcConn struct {
	conn   *grpc.ClientConn
	target string
}

var rpcConnProp = &tiny.NativeProp{
	Name: "rpcconn",
	Finalize: func(addr any) {
		c := addr.(*rpcConn)
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
	},
	ToString: func(addr any) string {
		return fmt.Sprintf("<rpc %s>", addr.(*rpcConn).target)
	},
}

// BindRPC registers the dynamic gRPC foreign functions.
func BindRPC(state *tiny.State) error {
	bindings := map[string]tiny.ForeignFunction{
		"rpcload":   rpcLoad,
		"rpcdial":   rpcDial,
		"rpcinvoke": rpcInvoke,
		"rpcclose":  rpcClose,
	}

	for name, fn := range bindings {
		if err := state.BindFunction(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// rpcload(path) parses a .proto file and registers its services.
func rpcLoad(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.NewBool(false)
	}
	path, ok := args[0].ToString()
	if !ok {
		return tiny.NewBool(false)
	}

	parser := protoparse.Parser{ImportPaths: []string{"."}}
	fds, err := parser.ParseFiles(path)
	if err != nil {
		return tiny.NewBool(false)
	}

	protoRegistryMutex.Lock()
	defer protoRegistryMutex.Unlock()
	for _, fd := range fds {
		protoRegistry[fd.GetName()] = fd
	}

	return tiny.NewBool(true)
}

// rpcdial(target) opens a client connection and returns a native
// handle, or null on failure.
func rpcDial(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	target, ok := args[0].ToString()
	if !ok {
		return tiny.Null
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return tiny.Null
	}

	return tiny.NewNative(t, &rpcConn{conn: conn, target: target}, rpcConnProp)
}

func findMethodDescriptor(methodPath string) (*desc.MethodDescriptor, error) {
	slash := strings.LastIndex(methodPath, "/")
	if slash < 0 {
		return nil, fmt.Errorf("method path must look like package.Service/Method")
	}
	serviceName := methodPath[:slash]
	methodName := methodPath[slash+1:]

	protoRegistryMutex.RLock()
	defer protoRegistryMutex.RUnlock()

	for _, fd := range protoRegistry {
		if svc := fd.FindService(serviceName); svc != nil {
			if mtd := svc.FindMethodByName(methodName); mtd != nil {
				return mtd, nil
			}
		}
	}

	return nil, fmt.Errorf("method %s not found in loaded protos", methodPath)
}

// rpcinvoke(conn, method, jsonRequest) performs a unary call and
// returns the JSON-encoded response as an owned string, or null.
func rpcInvoke(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 3 {
		return tiny.Null
	}
	c, _ := args[0].ToAddr().(*rpcConn)
	methodPath, mok := args[1].ToString()
	reqJSON, rok := args[2].ToString()
	if c == nil || c.conn == nil || !mok || !rok {
		return tiny.Null
	}

	mtd, err := findMethodDescriptor(methodPath)
	if err != nil {
		return tiny.Null
	}
	if mtd.IsClientStreaming() || mtd.IsServerStreaming() {
		return tiny.Null
	}

	reqMsg := dynamic.NewMessage(mtd.GetInputType())
	if err := reqMsg.UnmarshalJSON([]byte(reqJSON)); err != nil {
		return tiny.Null
	}
	respMsg := dynamic.NewMessage(mtd.GetOutputType())

	// grpc wants the wire form "/package.Service/Method".
	if !strings.HasPrefix(methodPath, "/") {
		methodPath = "/" + methodPath
	}

	if err := c.conn.Invoke(context.Background(), methodPath, reqMsg, respMsg); err != nil {
		return tiny.Null
	}

	out, err := respMsg.MarshalJSON()
	if err != nil {
		return tiny.Null
	}
	return tiny.NewString(t, string(out))
}

func rpcClose(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	c, _ := args[0].ToAddr().(*rpcConn)
	if c != nil && c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return tiny.Null
}
