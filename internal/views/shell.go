package views

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"
)

// ShellData configures the browser shell page.
type ShellData struct {
	// Title is the initial document title.
	Title string

	// Bridge is the WebSocket path, e.g. "/_bridge".
	Bridge string

	// Root is the selector of the element rendered frames replace.
	Root string

	// Body is the pre-rendered root markup, shown before the bridge connects.
	Body string
}

// Shell is the page a browser loads. Its script forwards hash changes to
// the bridge and applies the frames that come back. Frames are msgpack
// maps with string keys and string or boolean values, which is all the
// tiny codec below understands.
func Shell(d ShellData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		cfg, err := json.Marshal(map[string]string{"bridge": d.Bridge, "root": d.Root})
		if err != nil {
			return err
		}
		parts := []string{
			`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`,
			templ.EscapeString(d.Title),
			`</title></head><body>`,
			d.Body,
			`<script>window.__hashpage=`, string(cfg), `;`, shellScript, `</script></body></html>`,
		}
		for _, p := range parts {
			if _, err := io.WriteString(w, p); err != nil {
				return err
			}
		}
		return nil
	})
}

const shellScript = `(function(c){
var te=new TextEncoder(),td=new TextDecoder();
function enc(o){var b=[];var k=Object.keys(o);b.push(0x80|k.length);
k.forEach(function(n){str(b,n);var v=o[n];if(typeof v==="boolean"){b.push(v?0xc3:0xc2)}else{str(b,String(v))}});
return new Uint8Array(b)}
function str(b,s){var u=te.encode(s),n=u.length;
if(n<32){b.push(0xa0|n)}else if(n<256){b.push(0xd9,n)}else if(n<65536){b.push(0xda,n>>8,n&255)}else{b.push(0xdb,n>>>24,(n>>16)&255,(n>>8)&255,n&255)}
for(var i=0;i<n;i++)b.push(u[i])}
function dec(buf){var d=new DataView(buf),p=0;
function rd(){var t=d.getUint8(p++);
if((t&0xf0)===0x80)return map(t&15);if(t===0xde){var n=d.getUint16(p);p+=2;return map(n)}
if((t&0xe0)===0xa0)return s(t&31);if(t===0xd9)return s(d.getUint8(p++));
if(t===0xda){var n2=d.getUint16(p);p+=2;return s(n2)}if(t===0xdb){var n4=d.getUint32(p);p+=4;return s(n4)}
if(t===0xc0)return null;if(t===0xc2)return false;if(t===0xc3)return true;throw new Error("msgpack "+t)}
function map(n){var o={};for(var i=0;i<n;i++){var k=rd();o[k]=rd()}return o}
function s(n){var v=td.decode(new Uint8Array(buf,p,n));p+=n;return v}
return rd()}
var proto=location.protocol==="https:"?"wss://":"ws://";
var ws=new WebSocket(proto+location.host+c.bridge);ws.binaryType="arraybuffer";
function send(){ws.send(enc({t:"hash",hash:location.hash.replace(/^#/,"")}))}
ws.onopen=send;
window.addEventListener("hashchange",function(){if(ws.readyState===1)send()});
ws.onmessage=function(e){var f=dec(e.data);
if(f.t==="render"){var r=document.querySelector(c.root)||document.body;r.innerHTML=f.html;document.title=f.title}
else if(f.t==="navigate"){if(f.replace){location.replace(f.hash)}else{location.hash=f.hash}}
else if(f.t==="reload"){location.reload()}};
ws.onclose=function(){setTimeout(function(){location.reload()},1000)};
})(window.__hashpage);`
