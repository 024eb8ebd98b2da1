package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RenderWidgetScript wraps a display payload in a self-mounting script. The page provides the
// renderer as window.ReviewWidget.render; without it the data is left on the mount node.
func RenderWidgetScript(widgetID uint, payload interface{}) ([]byte, error) {
	// json.Marshal escapes <, > and & so the payload cannot close the script tag
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode widget payload: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("(function(){")
	buf.WriteString("var data=")
	buf.Write(data)
	buf.WriteString(";")
	buf.WriteString("var s=document.currentScript;")
	buf.WriteString("var el=document.createElement('div');")
	buf.WriteString("el.className='review-widget';")
	fmt.Fprintf(&buf, "el.setAttribute('data-widget-id','%d');", widgetID)
	buf.WriteString("el.reviewWidgetData=data;")
	buf.WriteString("if(s&&s.parentNode){s.parentNode.insertBefore(el,s);}")
	buf.WriteString("if(window.ReviewWidget&&typeof window.ReviewWidget.render==='function'){window.ReviewWidget.render(el,data);}")
	buf.WriteString("})();")
	return buf.Bytes(), nil
}
